package flows

import (
	"context"
	"fmt"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/internal/eventlog"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/safedep/unmutex/internal/window"
	"github.com/safedep/unmutex/launcher"
	"github.com/safedep/unmutex/lifecycle"
	"github.com/safedep/unmutex/orchestrator"
)

type launchFlow struct {
	deps *Dependencies
}

// Launch creates the flow that starts new copies of the target application
// next to the ones already tracked.
func Launch(deps *Dependencies) *launchFlow {
	return &launchFlow{deps: deps}
}

// Run launches count instances. The tracked instances are suspended while
// each new copy has its mutex closed and are resumed before Run returns.
func (f *launchFlow) Run(ctx context.Context, count int) (*ui.ReportData, error) {
	target, err := f.deps.ResolveTarget()
	if err != nil {
		return nil, err
	}

	if target.Executable == "" {
		return nil, fmt.Errorf("%w: profile %s has no executable, pass one with --exe",
			launcher.ErrInvalidPath, target.Profile)
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

	var progress *ui.BatchProgress
	if ui.Verbosity() != ui.VerbosityLevelSilent {
		ui.StartProgressWriter()
		progress = ui.NewBatchProgress(count)
	}

	saver := &checkpoint{store: f.deps.Store}
	onEvent := func(event orchestrator.Event) {
		log.Debugf("Batch %s: %s (state %s, index %d, pid %d)",
			event.BatchID, event.Type, event.State, event.Index, event.PID)

		if progress != nil {
			progress.OnEvent(event)
		}

		eventlog.LogOrchestratorEvent(event)
		saver.OnEvent(event)
	}

	orch, err := f.deps.newOrchestrator(target, controller, stored, true, onEvent)
	if err != nil {
		if progress != nil {
			ui.StopProgressWriter()
		}

		return nil, err
	}

	saver.orch = orch

	log.Infof("Launching %d instance(s) of %s next to %d tracked", count, target.Executable, len(stored))
	eventlog.LogBatchStarted(count, target.Executable, target.MutexName)

	report, batchErr := orch.LaunchInstances(ctx, count)

	if progress != nil {
		ui.StopProgressWriter()
	}

	eventlog.LogBatchFinished(report, batchErr)

	if report != nil && ctx.Err() == nil {
		f.labelWindows(ctx, target, report.Launched)
	}

	instances := orch.Instances()
	if err := f.deps.Store.Save(instances); err != nil {
		log.Errorf("Failed to save tracked instances: %v", err)
		eventlog.LogError("failed to save tracked instances", err)

		if batchErr == nil {
			batchErr = err
		}
	}

	data := ui.NewReportData(report, batchErr)
	data.Profile = target.Profile
	data.Executable = target.Executable
	data.MutexName = target.MutexName
	data.Open = len(instances)
	data.Outcome = inferOutcome(report, batchErr)

	return data, batchErr
}

// labelWindows renames the window of every new instance. It runs once all
// instances are resumed, a suspended window cannot process the rename.
func (f *launchFlow) labelWindows(ctx context.Context, target *Target, launched []orchestrator.Instance) {
	if target.TitleFormat == "" || f.deps.Titles == nil {
		return
	}

	for _, instance := range launched {
		title := window.FormatTitle(target.TitleFormat, instance.Index, instance.PID, target.Variables)

		if err := f.deps.Titles.SetTitle(ctx, instance.PID, title); err != nil {
			ui.Warnf("Could not set the window title of instance %d: %v", instance.Index, err)
		}
	}
}
