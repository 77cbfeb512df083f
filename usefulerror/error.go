package usefulerror

import (
	"errors"
	"syscall"
)

// UsefulError is what the CLI prints when a command fails: a readable
// message, what to try next, and for errors raised against one process the
// pid and the Windows error code behind it.
type UsefulError interface {
	error

	HumanError() string

	// Help says what the user can do about the error.
	Help() string

	// AdditionalHelp is an optional second hint, empty when there is none.
	AdditionalHelp() string

	// Code is one of the ErrCode constants.
	Code() string

	// PID is the process the error is about, 0 when it is not about one.
	PID() uint32

	// OSCode is the Win32 error or NTSTATUS value, 0 when there is none.
	OSCode() uint32
}

// processError is implemented by errors raised while working on one process.
type processError interface {
	ProcessID() uint32
}

// osError is implemented by errors that carry a Win32 error or NTSTATUS.
type osError interface {
	OSCode() uint32
}

type errorBuilder struct {
	err            error
	humanError     string
	help           string
	additionalHelp string
	code           string
	msg            string
	pid            uint32
	osCode         uint32
}

var _ UsefulError = (*errorBuilder)(nil)

func Useful() *errorBuilder {
	return &errorBuilder{}
}

// Wrap sets the underlying error. The pid and OS code are taken from its
// chain unless they were set already.
func (b *errorBuilder) Wrap(err error) *errorBuilder {
	b.err = err

	var pe processError
	if b.pid == 0 && errors.As(err, &pe) {
		b.pid = pe.ProcessID()
	}

	if b.osCode == 0 {
		b.osCode = osCodeOf(err)
	}

	return b
}

func (b *errorBuilder) WithHumanError(humanError string) *errorBuilder {
	b.humanError = humanError
	return b
}

func (b *errorBuilder) WithHelp(help string) *errorBuilder {
	b.help = help
	return b
}

func (b *errorBuilder) WithAdditionalHelp(additionalHelp string) *errorBuilder {
	b.additionalHelp = additionalHelp
	return b
}

func (b *errorBuilder) WithCode(code string) *errorBuilder {
	b.code = code
	return b
}

// WithPID names the process the error is about.
func (b *errorBuilder) WithPID(pid uint32) *errorBuilder {
	b.pid = pid
	return b
}

func (b *errorBuilder) WithOSCode(code uint32) *errorBuilder {
	b.osCode = code
	return b
}

// Msg sets the error text used when nothing is wrapped.
func (b *errorBuilder) Msg(msg string) *errorBuilder {
	b.msg = msg
	return b
}

func (b *errorBuilder) Error() string {
	switch {
	case b.err != nil:
		return b.err.Error()
	case b.msg == "":
		return "unmutex: " + b.Code()
	case b.code != "":
		return b.code + ": " + b.msg
	default:
		return b.msg
	}
}

func (b *errorBuilder) HumanError() string {
	if b.humanError == "" {
		return "unmutex failed"
	}

	return b.humanError
}

func (b *errorBuilder) Help() string {
	if b.help == "" {
		return "Run the command again with --debug for details"
	}

	return b.help
}

func (b *errorBuilder) AdditionalHelp() string {
	return b.additionalHelp
}

func (b *errorBuilder) Code() string {
	if b.code == "" {
		return ErrCodeUnknown
	}

	return b.code
}

func (b *errorBuilder) PID() uint32 {
	return b.pid
}

func (b *errorBuilder) OSCode() uint32 {
	return b.osCode
}

func (b *errorBuilder) Unwrap() error {
	return b.err
}

// AsUsefulError finds a UsefulError in the chain of err.
func AsUsefulError(err error) (UsefulError, bool) {
	if err == nil {
		return nil, false
	}

	var ue UsefulError
	if errors.As(err, &ue) {
		return ue, true
	}

	return nil, false
}

func osCodeOf(err error) uint32 {
	var oe osError
	if errors.As(err, &oe) {
		return oe.OSCode()
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint32(errno)
	}

	return 0
}
