package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/safedep/unmutex/handles"
	"github.com/safedep/unmutex/launcher"
	"github.com/safedep/unmutex/lifecycle"
)

var (
	ErrProcessLaunchFailed = errors.New("process launch failed")
	ErrBatchInProgress     = errors.New("a batch is already in progress")
	ErrNotTracked          = errors.New("process is not tracked")
	ErrInvalidCount        = errors.New("instance count must be at least 1")
	ErrInstanceExited      = errors.New("tracked process has exited")
)

// State of the batch state machine.
type State string

const (
	StateIdle             State = "idle"
	StateSuspendingPriors State = "suspending_priors"
	StateLaunching        State = "launching"
	StateSettling         State = "settling"
	StateInterrogating    State = "interrogating"
	StateReleasingMutex   State = "releasing_mutex"
	StateResumingAll      State = "resuming_all"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

type EventType string

const (
	EventQueued             EventType = "queued"
	EventStateChanged       EventType = "state_changed"
	EventSuspended          EventType = "suspended"
	EventLaunched           EventType = "launched"
	EventMutexReleased      EventType = "mutex_released"
	EventMutexReleaseFailed EventType = "mutex_release_failed"
	EventExited             EventType = "exited"
	EventResumed            EventType = "resumed"
	EventFailed             EventType = "failed"
	EventDone               EventType = "done"
)

// Event is emitted for every observable step of a batch. Index is the 1 based
// instance number, PID is set for events about one process.
type Event struct {
	Type    EventType
	BatchID string
	State   State
	Index   int
	PID     uint32
	Reason  string
	Err     error
	Time    time.Time
}

// Instance is one tracked copy of the application. Held marks a suspension
// the user asked for; batches and crash recovery leave those alone.
type Instance struct {
	Index         int       `json:"index"`
	PID           uint32    `json:"pid"`
	Path          string    `json:"path"`
	LaunchedAt    time.Time `json:"launched_at"`
	MutexReleased bool      `json:"mutex_released"`
	Suspended     bool      `json:"suspended"`
	Held          bool      `json:"held,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// BatchReport summarizes one LaunchInstances call.
type BatchReport struct {
	BatchID         string
	Requested       int
	Launched        []Instance
	Released        int
	ReleaseFailures int
	SuspendCalls    int
	ResumedPIDs     []uint32
	Releases        map[uint32]*handles.Release
	FinalState      State
	StartedAt       time.Time
	FinishedAt      time.Time
}

type Launcher interface {
	Launch(ctx context.Context) (*launcher.Process, error)
}

type Lifecycle interface {
	Suspend(pid uint32) (*lifecycle.Suspension, error)
	Resume(pid uint32) (int, error)
	Alive(pid uint32) (bool, error)
}

// MutexReleaser finds and closes the guard mutex inside one process.
type MutexReleaser interface {
	Locate(ctx context.Context, target handles.MutexTarget) (*handles.Release, error)
	Close(ctx context.Context, release *handles.Release) error
}

type Config struct {
	// MutexName is the full object manager path of the guard mutex.
	MutexName string

	// SettleDelay is how long a new copy gets to create its mutex before we
	// look for it.
	SettleDelay time.Duration

	// OnEvent receives every batch event. It runs on the batch goroutine.
	OnEvent func(Event)
}

func DefaultConfig() Config {
	return Config{
		SettleDelay: 800 * time.Millisecond,
	}
}
