//go:build windows

package window

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modUser32          = windows.NewLazySystemDLL("user32.dll")
	procSetWindowTextW = modUser32.NewProc("SetWindowTextW")
	procGetWindow      = modUser32.NewProc("GetWindow")
)

const gwOwner = 4

type windowSearch struct {
	pid  uint32
	hwnd windows.HWND
}

var enumWindowsCallback = windows.NewCallback(func(hwnd windows.HWND, lparam uintptr) uintptr {
	search := (*windowSearch)(unsafe.Pointer(lparam))

	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid != search.pid {
		return 1
	}

	if !windows.IsWindowVisible(hwnd) {
		return 1
	}

	// Owned windows are dialogs and tool windows, not the main window.
	if owner, _, _ := procGetWindow.Call(uintptr(hwnd), gwOwner); owner != 0 {
		return 1
	}

	search.hwnd = hwnd
	return 0
})

func findMainWindow(pid uint32) (uintptr, error) {
	search := &windowSearch{pid: pid}

	// EnumWindows reports an error when the callback stops the enumeration.
	_ = windows.EnumWindows(enumWindowsCallback, unsafe.Pointer(search))

	if search.hwnd == 0 {
		return 0, ErrNoWindow
	}

	return uintptr(search.hwnd), nil
}

func setWindowText(hwnd uintptr, title string) error {
	text, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return err
	}

	if ok, _, err := procSetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(text))); ok == 0 {
		return err
	}

	return nil
}
