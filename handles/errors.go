package handles

import (
	"errors"
	"fmt"
)

var (
	ErrSizeNegotiationExhausted = errors.New("buffer size negotiation exhausted")
	ErrMalformedBuffer          = errors.New("malformed buffer")
	ErrDuplicateHandleFailed    = errors.New("duplicate handle failed")
	ErrMutexNotFound            = errors.New("mutex not found")
	ErrAmbiguousMatch           = errors.New("more than one handle matched")
)

// CloseReason says which step of a close failed.
type CloseReason string

const (
	ReasonOpenProcess CloseReason = "open_process"
	ReasonDuplicate   CloseReason = "duplicate"
)

// CloseError is returned by Closer.Close. Code is the OS error code.
type CloseError struct {
	Reason      CloseReason
	Code        uint32
	PID         uint32
	HandleValue uint64
	Err         error
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("close handle 0x%x of pid %d failed at %s (code %d): %v",
		e.HandleValue, e.PID, e.Reason, e.Code, e.Err)
}

func (e *CloseError) Unwrap() error {
	return e.Err
}

func (e *CloseError) ProcessID() uint32 {
	return e.PID
}

func (e *CloseError) OSCode() uint32 {
	return e.Code
}

func (e *CloseError) Is(target error) bool {
	return target == ErrDuplicateHandleFailed
}
