package flows

import (
	"context"
	"fmt"

	"github.com/safedep/unmutex/internal/eventlog"
	"github.com/safedep/unmutex/lifecycle"
	"github.com/safedep/unmutex/orchestrator"
)

type processFlow struct {
	deps *Dependencies
}

// Process creates the flow behind the suspend and resume commands. Any pid
// may be used. A tracked instance suspended here is marked held, launch and
// release batches leave it suspended until it is resumed here.
func Process(deps *Dependencies) *processFlow {
	return &processFlow{deps: deps}
}

// Suspend pauses every thread of pid and returns how many were suspended.
func (f *processFlow) Suspend(ctx context.Context, pid uint32) (int, error) {
	controller := lifecycle.NewController(f.deps.System)
	suspended := 0

	err := f.deps.Store.Update(ctx, func(instances []orchestrator.Instance) ([]orchestrator.Instance, error) {
		suspension, err := controller.Suspend(pid)
		if err != nil {
			eventlog.LogProcessAction(eventlog.EventTypeSuspend, pid, "suspend failed", err)
			return nil, err
		}

		suspended = len(suspension.Tokens)
		eventlog.LogProcessAction(eventlog.EventTypeSuspend, pid,
			fmt.Sprintf("suspended %d threads", suspended), nil)

		return markSuspended(instances, pid, true), nil
	})

	return suspended, err
}

// Resume drains the suspend count of every thread of pid and returns how
// many resume calls were made.
func (f *processFlow) Resume(ctx context.Context, pid uint32) (int, error) {
	controller := lifecycle.NewController(f.deps.System)
	resumed := 0

	err := f.deps.Store.Update(ctx, func(instances []orchestrator.Instance) ([]orchestrator.Instance, error) {
		calls, err := controller.Resume(pid)
		if err != nil {
			eventlog.LogProcessAction(eventlog.EventTypeResume, pid, "resume failed", err)
			return nil, err
		}

		resumed = calls
		eventlog.LogProcessAction(eventlog.EventTypeResume, pid,
			fmt.Sprintf("%d resume calls", calls), nil)

		return markSuspended(instances, pid, false), nil
	})

	return resumed, err
}

func markSuspended(instances []orchestrator.Instance, pid uint32, suspended bool) []orchestrator.Instance {
	for i := range instances {
		if instances[i].PID == pid {
			instances[i].Suspended = suspended
			instances[i].Held = suspended
		}
	}

	return instances
}
