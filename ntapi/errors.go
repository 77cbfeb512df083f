package ntapi

import (
	"errors"
	"fmt"
)

var (
	ErrAccessDenied        = errors.New("access denied")
	ErrThreadGone          = errors.New("thread no longer exists")
	ErrProcessGone         = errors.New("process no longer exists")
	ErrUnsupportedPlatform = errors.New("operation is only supported on windows")
)

// Win32 error codes and NTSTATUS values the callers care about.
const (
	CodeAccessDenied     uint32 = 5
	CodeInvalidHandle    uint32 = 6
	CodeInvalidParameter uint32 = 87

	StatusInfoLengthMismatch uint32 = 0xC0000004
	StatusInvalidHandle      uint32 = 0xC0000008
	StatusInvalidCid         uint32 = 0xC000000B
	StatusAccessDenied       uint32 = 0xC0000022
	StatusBufferTooSmall     uint32 = 0xC0000023
	StatusBufferOverflow     uint32 = 0x80000005
)

// Error is an OS refusal. Code holds either a Win32 error code or an NTSTATUS,
// depending on which API produced it.
type Error struct {
	Op   string
	Code uint32
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s: status 0x%08X", e.Op, e.Code)
}

// OSCode returns the NTSTATUS or Win32 error value.
func (e *Error) OSCode() uint32 {
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps OS codes onto the package sentinels so callers can use errors.Is
// without knowing which API family failed.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAccessDenied:
		return e.Code == CodeAccessDenied || e.Code == StatusAccessDenied
	case ErrThreadGone, ErrProcessGone:
		return e.Code == CodeInvalidParameter || e.Code == StatusInvalidCid
	}

	return false
}

// LengthMismatchError reports that the supplied buffer was too small. Required
// is the size the OS asked for, or 0 when it did not say.
type LengthMismatchError struct {
	Op       string
	Required int
	Status   uint32
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s: buffer too small (status 0x%08X, required %d bytes)", e.Op, e.Status, e.Required)
}

// ErrorCode returns the OS code carried by err, or 0 when there is none.
func ErrorCode(err error) uint32 {
	var osErr *Error
	if errors.As(err, &osErr) {
		return osErr.Code
	}

	return 0
}

// IsLengthMismatch reports whether the status is one of the "buffer too small"
// family returned by the Nt query functions.
func IsLengthMismatch(status uint32) bool {
	return status == StatusInfoLengthMismatch ||
		status == StatusBufferTooSmall ||
		status == StatusBufferOverflow
}

// NtSuccess reports whether an NTSTATUS is a success or informational value.
func NtSuccess(status uint32) bool {
	return status < 0x80000000
}
