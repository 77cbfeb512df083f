package window

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/safedep/unmutex/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTitle(t *testing.T) {
	assert.Equal(t, "Growtopia 3", FormatTitle("Growtopia ${INDEX}", 3, 1008, nil))
	assert.Equal(t, "App 1 (1004)", FormatTitle("App ${INDEX} (${PID})", 1, 1004, nil))
	assert.Equal(t, "notes on 2 #1", FormatTitle("notes on ${SESSION_ID} #${INDEX}", 1, 1,
		profile.Variables{"SESSION_ID": "2"}))
	assert.Equal(t, "plain", FormatTitle("plain", 1, 1, nil))
}

func testLabeler(find func(uint32) (uintptr, error), set func(uintptr, string) error) *Labeler {
	return &Labeler{
		find:         find,
		setText:      set,
		pollInterval: time.Millisecond,
		timeout:      50 * time.Millisecond,
	}
}

func TestSetTitleWaitsForWindow(t *testing.T) {
	calls := 0
	var gotHwnd uintptr
	var gotTitle string

	labeler := testLabeler(func(pid uint32) (uintptr, error) {
		calls++
		if calls < 3 {
			return 0, ErrNoWindow
		}

		return 0xabc, nil
	}, func(hwnd uintptr, title string) error {
		gotHwnd = hwnd
		gotTitle = title
		return nil
	})

	require.NoError(t, labeler.SetTitle(context.Background(), 1004, "App 1"))
	assert.Equal(t, 3, calls)
	assert.Equal(t, uintptr(0xabc), gotHwnd)
	assert.Equal(t, "App 1", gotTitle)
}

func TestSetTitleTimesOut(t *testing.T) {
	labeler := testLabeler(func(uint32) (uintptr, error) {
		return 0, ErrNoWindow
	}, func(uintptr, string) error {
		t.Fatal("no window, nothing to rename")
		return nil
	})

	err := labeler.SetTitle(context.Background(), 1004, "App 1")
	assert.ErrorIs(t, err, ErrNoWindow)
}

func TestSetTitleStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	labeler := testLabeler(func(uint32) (uintptr, error) {
		calls++
		return 0, boom
	}, nil)

	err := labeler.SetTitle(context.Background(), 1004, "App 1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestSetTitleReportsSetFailure(t *testing.T) {
	boom := errors.New("boom")

	labeler := testLabeler(func(uint32) (uintptr, error) {
		return 1, nil
	}, func(uintptr, string) error {
		return boom
	})

	assert.ErrorIs(t, labeler.SetTitle(context.Background(), 1004, "App 1"), boom)
}
