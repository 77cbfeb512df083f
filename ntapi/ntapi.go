// Package ntapi is the narrow slice of the Windows process and object manager
// API that the rest of unmutex is written against. Everything above this package
// talks to the System interface only, so tests can drive the handle queries,
// duplication and thread control through a scripted backend (see ntapitest).
package ntapi

// Handle is an opaque OS handle value valid in the process that owns it.
type Handle uintptr

// ObjectInfoClass selects the structure returned by QueryObject.
type ObjectInfoClass uint32

const (
	ObjectBasicInformation ObjectInfoClass = 0
	ObjectNameInformation  ObjectInfoClass = 1
)

// Access rights used by unmutex. Callers always ask for the minimum they need.
const (
	ProcessDupHandle               uint32 = 0x0040
	ProcessSuspendResume           uint32 = 0x0800
	ProcessQueryLimitedInformation uint32 = 0x1000
	ThreadSuspendResume            uint32 = 0x0002
)

// DuplicateOptions mirrors the dwOptions argument of DuplicateHandle.
type DuplicateOptions uint32

const (
	DuplicateNone        DuplicateOptions = 0x0
	DuplicateCloseSource DuplicateOptions = 0x1
	DuplicateSameAccess  DuplicateOptions = 0x2
)

// MaximumSuspendCount is the highest suspend count the kernel keeps per thread.
const MaximumSuspendCount = 0x7f

// CurrentProcessHandle is the pseudo handle that always refers to the calling process.
const CurrentProcessHandle = Handle(^uintptr(0))

// System is the OS capability surface. Implementations return *Error for OS
// refusals and *LengthMismatchError when a caller supplied buffer is too small.
type System interface {
	// QuerySystemHandles fills buf with the system wide handle table and returns
	// the number of bytes written.
	QuerySystemHandles(buf []byte) (int, error)

	// QueryObject fills buf with the requested information about h, which must
	// be a handle valid in the calling process.
	QueryObject(h Handle, class ObjectInfoClass, buf []byte) (int, error)

	// DuplicateHandle duplicates sourceHandle out of sourceProcess. A zero
	// targetProcess is only meaningful together with DuplicateCloseSource.
	DuplicateHandle(sourceProcess Handle, sourceHandle Handle, targetProcess Handle,
		access uint32, options DuplicateOptions) (Handle, error)

	OpenProcess(pid uint32, access uint32) (Handle, error)
	OpenThread(tid uint32, access uint32) (Handle, error)
	CloseHandle(h Handle) error
	CurrentProcess() Handle

	// SuspendThread and ResumeThread return the suspend count the thread had
	// before the call.
	SuspendThread(h Handle) (uint32, error)
	ResumeThread(h Handle) (uint32, error)

	// ProcessThreads lists the ids of the threads currently owned by pid.
	ProcessThreads(pid uint32) ([]uint32, error)

	// ProcessRunning reports whether pid refers to a process that has not exited.
	ProcessRunning(pid uint32) (bool, error)

	// SessionID is the terminal services session of the calling process.
	SessionID() (uint32, error)
}
