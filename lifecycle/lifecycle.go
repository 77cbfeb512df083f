// Package lifecycle pauses and resumes every thread of a process.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/ntapi"
)

// ThreadSuspensionToken is one suspended thread. PriorCount is the suspend
// count the thread had before we suspended it.
type ThreadSuspensionToken struct {
	ThreadID   uint32
	PriorCount uint32
}

// Suspension is the result of suspending one process.
type Suspension struct {
	PID     uint32
	Tokens  []ThreadSuspensionToken
	Skipped int
}

// Controller suspends and resumes processes through ntapi.
type Controller struct {
	sys ntapi.System
}

func NewController(sys ntapi.System) *Controller {
	return &Controller{sys: sys}
}

// Suspend suspends every thread pid has right now. Threads that exit between
// the snapshot and the suspend call are skipped.
func (c *Controller) Suspend(pid uint32) (*Suspension, error) {
	threads, err := c.sys.ProcessThreads(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads of pid %d: %w", pid, err)
	}

	suspension := &Suspension{PID: pid}

	for _, tid := range threads {
		prior, err := c.withThread(tid, c.sys.SuspendThread)
		if err != nil {
			if isStale(err) {
				suspension.Skipped++
				continue
			}

			// Leave the process as we found it.
			if _, resumeErr := c.resumeTokens(suspension.Tokens); resumeErr != nil {
				log.Warnf("Failed to roll back partial suspension of pid %d: %v", pid, resumeErr)
			}

			return nil, fmt.Errorf("failed to suspend thread %d of pid %d: %w", tid, pid, err)
		}

		suspension.Tokens = append(suspension.Tokens, ThreadSuspensionToken{ThreadID: tid, PriorCount: prior})
	}

	log.Debugf("Suspended %d threads of pid %d (%d skipped)", len(suspension.Tokens), pid, suspension.Skipped)
	return suspension, nil
}

// Resume drains the suspend count of every thread pid has right now down to
// zero and returns the number of resume calls made. A running process takes
// one call per thread and is left untouched.
func (c *Controller) Resume(pid uint32) (int, error) {
	threads, err := c.sys.ProcessThreads(pid)
	if err != nil {
		return 0, fmt.Errorf("failed to list threads of pid %d: %w", pid, err)
	}

	calls := 0
	var errs []error

	for _, tid := range threads {
		n, err := c.drain(tid)
		calls += n

		if err != nil && !isStale(err) {
			errs = append(errs, fmt.Errorf("failed to resume thread %d of pid %d: %w", tid, pid, err))
		}
	}

	log.Debugf("Resumed %d threads of pid %d with %d calls", len(threads), pid, calls)
	return calls, errors.Join(errs...)
}

// Alive reports whether pid is still running. A non-nil error means the
// check itself failed and the answer is unknown.
func (c *Controller) Alive(pid uint32) (bool, error) {
	running, err := c.sys.ProcessRunning(pid)
	if err != nil {
		return false, fmt.Errorf("failed to check pid %d: %w", pid, err)
	}

	return running, nil
}

// Exited reports whether pid is known to have exited. A failed check is
// logged and counts as still running.
func (c *Controller) Exited(pid uint32) bool {
	running, err := c.Alive(pid)
	if err != nil {
		log.Debugf("Unable to check pid %d: %v", pid, err)
		return false
	}

	return !running
}

func (c *Controller) resumeTokens(tokens []ThreadSuspensionToken) (int, error) {
	calls := 0
	var errs []error

	for _, token := range tokens {
		_, err := c.withThread(token.ThreadID, c.sys.ResumeThread)
		calls++

		if err != nil && !isStale(err) {
			errs = append(errs, err)
		}
	}

	return calls, errors.Join(errs...)
}

// drain calls ResumeThread until the prior count says the thread runs again.
func (c *Controller) drain(tid uint32) (int, error) {
	h, err := c.sys.OpenThread(tid, ntapi.ThreadSuspendResume)
	if err != nil {
		return 0, err
	}

	defer c.closeHandle(h)

	calls := 0
	for calls <= ntapi.MaximumSuspendCount {
		prior, err := c.sys.ResumeThread(h)
		calls++

		if err != nil {
			return calls, err
		}

		if prior <= 1 {
			return calls, nil
		}
	}

	return calls, fmt.Errorf("thread %d still suspended after %d resume calls", tid, calls)
}

func (c *Controller) withThread(tid uint32, op func(ntapi.Handle) (uint32, error)) (uint32, error) {
	h, err := c.sys.OpenThread(tid, ntapi.ThreadSuspendResume)
	if err != nil {
		return 0, err
	}

	defer c.closeHandle(h)

	return op(h)
}

func (c *Controller) closeHandle(h ntapi.Handle) {
	if err := c.sys.CloseHandle(h); err != nil {
		log.Warnf("Failed to close thread handle 0x%x: %v", h, err)
	}
}

func isStale(err error) bool {
	return errors.Is(err, ntapi.ErrThreadGone)
}
