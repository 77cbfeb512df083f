package usefulerror

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeFailure struct {
	pid  uint32
	code uint32
}

func (e *closeFailure) Error() string     { return fmt.Sprintf("close in pid %d failed", e.pid) }
func (e *closeFailure) ProcessID() uint32 { return e.pid }
func (e *closeFailure) OSCode() uint32    { return e.code }

func TestUsefulErrorError(t *testing.T) {
	cases := []struct {
		name string
		err  *errorBuilder
		want string
	}{
		{"wrapped", Useful().WithCode(ErrCodeNotTracked).Wrap(errors.New("pid 7 is not tracked")), "pid 7 is not tracked"},
		{"msg", Useful().Msg("invalid pid"), "invalid pid"},
		{"code and msg", Useful().WithCode(ErrCodeInvalidArgument).Msg("invalid pid"), "InvalidArgument: invalid pid"},
		{"code only", Useful().WithCode(ErrCodeTimeout), "unmutex: Timeout"},
		{"empty", Useful(), "unmutex: Unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestUsefulErrorDefaults(t *testing.T) {
	err := Useful()

	assert.Equal(t, ErrCodeUnknown, err.Code())
	assert.NotEmpty(t, err.HumanError())
	assert.NotEmpty(t, err.Help())
	assert.Empty(t, err.AdditionalHelp())
	assert.Zero(t, err.PID())
	assert.Zero(t, err.OSCode())
}

func TestUsefulErrorFields(t *testing.T) {
	err := Useful().
		WithCode(ErrCodeMutexNotFound).
		WithHumanError("The single instance mutex was not found").
		WithHelp("Check the mutex name").
		WithAdditionalHelp("Raise --settle").
		Msg("mutex not found")

	assert.Equal(t, ErrCodeMutexNotFound, err.Code())
	assert.Equal(t, "The single instance mutex was not found", err.HumanError())
	assert.Equal(t, "Check the mutex name", err.Help())
	assert.Equal(t, "Raise --settle", err.AdditionalHelp())
}

func TestWrapTakesProcessDetailsFromChain(t *testing.T) {
	cause := &closeFailure{pid: 1004, code: 5}
	err := Useful().WithCode(ErrCodeMutexReleaseFailed).Wrap(fmt.Errorf("release: %w", cause))

	assert.Equal(t, uint32(1004), err.PID())
	assert.Equal(t, uint32(5), err.OSCode())
	assert.ErrorIs(t, err, cause)
}

func TestWrapTakesErrno(t *testing.T) {
	err := Useful().Wrap(fmt.Errorf("start: %w", syscall.Errno(2)))

	assert.Equal(t, uint32(2), err.OSCode())
	assert.Zero(t, err.PID())
}

func TestExplicitProcessDetailsWin(t *testing.T) {
	err := Useful().WithPID(42).WithOSCode(0xC0000022).Wrap(&closeFailure{pid: 1004, code: 5})

	assert.Equal(t, uint32(42), err.PID())
	assert.Equal(t, uint32(0xC0000022), err.OSCode())
}

func TestAsUsefulError(t *testing.T) {
	_, ok := AsUsefulError(nil)
	assert.False(t, ok)

	_, ok = AsUsefulError(errors.New("plain"))
	assert.False(t, ok)

	inner := Useful().WithCode(ErrCodeInvalidArgument).Msg("invalid pid")
	ue, ok := AsUsefulError(fmt.Errorf("parse: %w", inner))
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidArgument, ue.Code())
}
