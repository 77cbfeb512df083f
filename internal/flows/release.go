package flows

import (
	"context"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/handles"
	"github.com/safedep/unmutex/internal/eventlog"
	"github.com/safedep/unmutex/lifecycle"
	"github.com/safedep/unmutex/orchestrator"
)

type releaseFlow struct {
	deps *Dependencies
}

// Release creates the flow that closes the guard mutex of one tracked
// instance again, for example after the application recreated it.
func Release(deps *Dependencies) *releaseFlow {
	return &releaseFlow{deps: deps}
}

func (f *releaseFlow) Run(ctx context.Context, pid uint32) (*handles.Release, error) {
	target, err := f.deps.ResolveTarget()
	if err != nil {
		return nil, err
	}

	unlock, err := f.deps.Store.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	controller := lifecycle.NewController(f.deps.System)

	stored, err := f.deps.loadTracked(controller)
	if err != nil {
		return nil, err
	}

	saver := &checkpoint{store: f.deps.Store}
	orch, err := f.deps.newOrchestrator(target, controller, stored, false, func(event orchestrator.Event) {
		log.Debugf("Release of pid %d: %s (state %s)", pid, event.Type, event.State)
		saver.OnEvent(event)
	})
	if err != nil {
		return nil, err
	}

	saver.orch = orch

	release, releaseErr := orch.CloseTrackedMutex(ctx, pid)
	if releaseErr != nil {
		eventlog.LogProcessAction(eventlog.EventTypeRelease, pid, "mutex release failed", releaseErr)
	} else {
		eventlog.LogProcessAction(eventlog.EventTypeRelease, pid, "released "+target.MutexName, nil)
	}

	if err := f.deps.Store.Save(orch.Instances()); err != nil {
		log.Errorf("Failed to save tracked instances: %v", err)
		if releaseErr == nil {
			releaseErr = err
		}
	}

	return release, releaseErr
}
