package usefulerror

// Codes printed in brackets after a failed command.
const (
	ErrCodeInvalidArgument     = "InvalidArgument"
	ErrCodePermissionDenied    = "PermissionDenied"
	ErrCodeNotFound            = "NotFound"
	ErrCodeTimeout             = "Timeout"
	ErrCodeCanceled            = "Canceled"
	ErrCodeUnknown             = "Unknown"
	ErrCodeProcessLaunchFailed = "ProcessLaunchFailed"
	ErrCodeMutexReleaseFailed  = "MutexReleaseFailed"
	ErrCodeMutexNotFound       = "MutexNotFound"
	ErrCodeBatchInProgress     = "BatchInProgress"
	ErrCodeNotTracked          = "NotTracked"
	ErrCodeHandleTableTooLarge = "HandleTableTooLarge"
	ErrCodeUnsupportedPlatform = "UnsupportedPlatform"
)
