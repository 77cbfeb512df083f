//go:build windows
// +build windows

package ntapi

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modntdll                     = windows.NewLazySystemDLL("ntdll.dll")
	procNtQuerySystemInformation = modntdll.NewProc("NtQuerySystemInformation")
	procNtQueryObject            = modntdll.NewProc("NtQueryObject")

	modkernel32       = windows.NewLazySystemDLL("kernel32.dll")
	procSuspendThread = modkernel32.NewProc("SuspendThread")
)

const (
	// SystemExtendedHandleInformation carries full width process ids and
	// handle values, unlike the legacy SystemHandleInformation (0x10).
	systemExtendedHandleInformation = 0x40

	stillActive = 259

	suspendThreadFailed = 0xFFFFFFFF
)

type nativeSystem struct{}

// Native returns the System backed by the running Windows kernel.
func Native() System {
	return nativeSystem{}
}

func (nativeSystem) QuerySystemHandles(buf []byte) (int, error) {
	var returnLength uint32

	r, _, _ := procNtQuerySystemInformation.Call(
		systemExtendedHandleInformation,
		bufferPointer(buf),
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&returnLength)),
	)

	return queryResult("NtQuerySystemInformation", uint32(r), returnLength)
}

func (nativeSystem) QueryObject(h Handle, class ObjectInfoClass, buf []byte) (int, error) {
	var returnLength uint32

	r, _, _ := procNtQueryObject.Call(
		uintptr(h),
		uintptr(class),
		bufferPointer(buf),
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&returnLength)),
	)

	return queryResult("NtQueryObject", uint32(r), returnLength)
}

func (nativeSystem) DuplicateHandle(sourceProcess Handle, sourceHandle Handle, targetProcess Handle,
	access uint32, options DuplicateOptions) (Handle, error) {
	var target windows.Handle

	err := windows.DuplicateHandle(
		windows.Handle(sourceProcess),
		windows.Handle(sourceHandle),
		windows.Handle(targetProcess),
		&target,
		access,
		false,
		uint32(options),
	)
	if err != nil {
		return 0, wrapError("DuplicateHandle", err)
	}

	return Handle(target), nil
}

func (nativeSystem) OpenProcess(pid uint32, access uint32) (Handle, error) {
	h, err := windows.OpenProcess(access, false, pid)
	if err != nil {
		return 0, wrapError("OpenProcess", err)
	}

	return Handle(h), nil
}

func (nativeSystem) OpenThread(tid uint32, access uint32) (Handle, error) {
	h, err := windows.OpenThread(access, false, tid)
	if err != nil {
		return 0, wrapError("OpenThread", err)
	}

	return Handle(h), nil
}

func (nativeSystem) CloseHandle(h Handle) error {
	return wrapError("CloseHandle", windows.CloseHandle(windows.Handle(h)))
}

func (nativeSystem) CurrentProcess() Handle {
	return Handle(windows.CurrentProcess())
}

func (nativeSystem) SuspendThread(h Handle) (uint32, error) {
	r, _, err := procSuspendThread.Call(uintptr(h))
	if uint32(r) == suspendThreadFailed {
		return 0, wrapError("SuspendThread", err)
	}

	return uint32(r), nil
}

func (nativeSystem) ResumeThread(h Handle) (uint32, error) {
	prior, err := windows.ResumeThread(windows.Handle(h))
	if err != nil {
		return 0, wrapError("ResumeThread", err)
	}

	return prior, nil
}

func (nativeSystem) ProcessThreads(pid uint32) ([]uint32, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return nil, wrapError("CreateToolhelp32Snapshot", err)
	}
	defer func() {
		_ = windows.CloseHandle(snapshot)
	}()

	var entry windows.ThreadEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Thread32First(snapshot, &entry); err != nil {
		if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
			return nil, nil
		}

		return nil, wrapError("Thread32First", err)
	}

	var threads []uint32
	for {
		if entry.OwnerProcessID == pid {
			threads = append(threads, entry.ThreadID)
		}

		if err := windows.Thread32Next(snapshot, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}

			return nil, wrapError("Thread32Next", err)
		}
	}

	return threads, nil
}

func (nativeSystem) ProcessRunning(pid uint32) (bool, error) {
	h, err := windows.OpenProcess(ProcessQueryLimitedInformation, false, pid)
	if err != nil {
		// Access denied still means there is a process behind the pid.
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return true, nil
		}

		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return false, nil
		}

		return false, wrapError("OpenProcess", err)
	}
	defer func() {
		_ = windows.CloseHandle(h)
	}()

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false, wrapError("GetExitCodeProcess", err)
	}

	return code == stillActive, nil
}

func (nativeSystem) SessionID() (uint32, error) {
	var session uint32
	if err := windows.ProcessIdToSessionId(windows.GetCurrentProcessId(), &session); err != nil {
		return 0, wrapError("ProcessIdToSessionId", err)
	}

	return session, nil
}

func queryResult(op string, status uint32, returnLength uint32) (int, error) {
	if IsLengthMismatch(status) {
		return 0, &LengthMismatchError{Op: op, Required: int(returnLength), Status: status}
	}

	if !NtSuccess(status) {
		return 0, &Error{Op: op, Code: status}
	}

	return int(returnLength), nil
}

func bufferPointer(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&buf[0]))
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var errno windows.Errno
	if errors.As(err, &errno) {
		return &Error{Op: op, Code: uint32(errno), Err: err}
	}

	return &Error{Op: op, Err: err}
}
