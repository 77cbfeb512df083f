package flows

import (
	"context"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/handles"
	"github.com/safedep/unmutex/lifecycle"
)

type inspectFlow struct {
	deps *Dependencies
}

// Inspect creates the flow that lists the named handles of any process. It
// helps to find the mutex name for a new profile.
func Inspect(deps *Dependencies) *inspectFlow {
	return &inspectFlow{deps: deps}
}

// Run resolves the handles of pid. With suspend set the process is held
// still while its handle table is read.
func (f *inspectFlow) Run(ctx context.Context, pid uint32, suspend bool) (*handles.Inspection, error) {
	if suspend {
		controller := lifecycle.NewController(f.deps.System)

		if _, err := controller.Suspend(pid); err != nil {
			log.Warnf("Inspecting pid %d without suspending it: %v", pid, err)
		} else {
			defer func() {
				if _, err := controller.Resume(pid); err != nil {
					log.Errorf("Failed to resume pid %d after inspection: %v", pid, err)
				}
			}()
		}
	}

	return handles.NewInterrogator(f.deps.System, f.deps.Config.Config.InterrogatorConfig()).Inspect(ctx, pid)
}
