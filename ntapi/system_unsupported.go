//go:build !windows
// +build !windows

package ntapi

import "fmt"

type unsupportedSystem struct{}

// Native returns a System whose every call fails with ErrUnsupportedPlatform.
// It keeps unmutex buildable and testable off Windows.
func Native() System {
	return unsupportedSystem{}
}

func unsupported(op string) error {
	return fmt.Errorf("%s: %w", op, ErrUnsupportedPlatform)
}

func (unsupportedSystem) QuerySystemHandles(_ []byte) (int, error) {
	return 0, unsupported("NtQuerySystemInformation")
}

func (unsupportedSystem) QueryObject(_ Handle, _ ObjectInfoClass, _ []byte) (int, error) {
	return 0, unsupported("NtQueryObject")
}

func (unsupportedSystem) DuplicateHandle(_ Handle, _ Handle, _ Handle, _ uint32, _ DuplicateOptions) (Handle, error) {
	return 0, unsupported("DuplicateHandle")
}

func (unsupportedSystem) OpenProcess(_ uint32, _ uint32) (Handle, error) {
	return 0, unsupported("OpenProcess")
}

func (unsupportedSystem) OpenThread(_ uint32, _ uint32) (Handle, error) {
	return 0, unsupported("OpenThread")
}

func (unsupportedSystem) CloseHandle(_ Handle) error {
	return unsupported("CloseHandle")
}

func (unsupportedSystem) CurrentProcess() Handle {
	return CurrentProcessHandle
}

func (unsupportedSystem) SuspendThread(_ Handle) (uint32, error) {
	return 0, unsupported("SuspendThread")
}

func (unsupportedSystem) ResumeThread(_ Handle) (uint32, error) {
	return 0, unsupported("ResumeThread")
}

func (unsupportedSystem) ProcessThreads(_ uint32) ([]uint32, error) {
	return nil, unsupported("CreateToolhelp32Snapshot")
}

func (unsupportedSystem) ProcessRunning(_ uint32) (bool, error) {
	return false, unsupported("OpenProcess")
}

func (unsupportedSystem) SessionID() (uint32, error) {
	return 0, unsupported("ProcessIdToSessionId")
}
