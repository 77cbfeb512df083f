//go:build !windows

package window

import (
	"fmt"

	"github.com/safedep/unmutex/ntapi"
)

func findMainWindow(pid uint32) (uintptr, error) {
	return 0, fmt.Errorf("find window: %w", ntapi.ErrUnsupportedPlatform)
}

func setWindowText(hwnd uintptr, title string) error {
	return fmt.Errorf("set window text: %w", ntapi.ErrUnsupportedPlatform)
}
