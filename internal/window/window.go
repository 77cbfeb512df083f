// Package window labels the main window of a launched copy so several copies
// can be told apart on the taskbar.
package window

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/profile"
)

var ErrNoWindow = errors.New("process has no visible top level window")

const (
	defaultPollInterval = 200 * time.Millisecond
	defaultTimeout      = 5 * time.Second
)

// FormatTitle expands ${INDEX} and ${PID} in format, plus any extra variables.
func FormatTitle(format string, index int, pid uint32, extra profile.Variables) string {
	vars := profile.Variables{}
	for k, v := range extra {
		vars[k] = v
	}

	vars = vars.With("INDEX", strconv.Itoa(index))
	vars = vars.With("PID", strconv.FormatUint(uint64(pid), 10))

	return vars.Expand(format)
}

// Labeler waits for the main window of a process and sets its title.
type Labeler struct {
	find         func(pid uint32) (uintptr, error)
	setText      func(hwnd uintptr, title string) error
	pollInterval time.Duration
	timeout      time.Duration
}

func NewLabeler() *Labeler {
	return &Labeler{
		find:         findMainWindow,
		setText:      setWindowText,
		pollInterval: defaultPollInterval,
		timeout:      defaultTimeout,
	}
}

// SetTitle polls until pid has a visible window, then renames it.
func (l *Labeler) SetTitle(ctx context.Context, pid uint32, title string) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		hwnd, err := l.find(pid)
		if err == nil {
			if err := l.setText(hwnd, title); err != nil {
				return fmt.Errorf("set title of pid %d: %w", pid, err)
			}

			log.Debugf("Window 0x%x of pid %d renamed to %q", hwnd, pid, title)
			return nil
		}

		if !errors.Is(err, ErrNoWindow) {
			return fmt.Errorf("find window of pid %d: %w", pid, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("pid %d: %w", pid, ErrNoWindow)
		case <-ticker.C:
		}
	}
}
