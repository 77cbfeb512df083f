package flows

import (
	"context"
	"fmt"

	"github.com/safedep/unmutex/internal/session"
	"github.com/safedep/unmutex/lifecycle"
	"github.com/safedep/unmutex/orchestrator"
)

type instancesFlow struct {
	deps *Dependencies
}

// Instances creates the flow that manages the instances file.
func Instances(deps *Dependencies) *instancesFlow {
	return &instancesFlow{deps: deps}
}

// List returns the tracked instances and a liveness check for them.
func (f *instancesFlow) List(ctx context.Context) ([]orchestrator.Instance, func(pid uint32) bool, error) {
	unlock, err := f.deps.Store.Lock(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	instances, err := f.deps.Store.Load()
	if err != nil {
		return nil, nil, err
	}

	controller := lifecycle.NewController(f.deps.System)
	alive := func(pid uint32) bool {
		return !controller.Exited(pid)
	}

	return instances, alive, nil
}

// Prune stops tracking instances that exited and returns them.
func (f *instancesFlow) Prune(ctx context.Context) ([]orchestrator.Instance, error) {
	exited := lifecycle.NewController(f.deps.System).Exited

	var dropped []orchestrator.Instance
	err := f.deps.Store.Update(ctx, func(instances []orchestrator.Instance) ([]orchestrator.Instance, error) {
		var kept []orchestrator.Instance
		kept, dropped = session.Prune(instances, exited)

		return kept, nil
	})

	return dropped, err
}

// Forget stops tracking pid without touching the process.
func (f *instancesFlow) Forget(ctx context.Context, pid uint32) error {
	return f.deps.Store.Update(ctx, func(instances []orchestrator.Instance) ([]orchestrator.Instance, error) {
		kept, removed := session.Remove(instances, pid)
		if !removed {
			return nil, fmt.Errorf("%w: pid %d", orchestrator.ErrNotTracked, pid)
		}

		return kept, nil
	})
}
