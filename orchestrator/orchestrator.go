// Package orchestrator launches several copies of a single instance application.
// Before every launch the copies already running are suspended, so their handle
// tables stay still while the new copy is interrogated and its guard mutex is
// closed. Everything suspended is resumed before a batch returns.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/handles"
)

type Orchestrator struct {
	config    Config
	launcher  Launcher
	lifecycle Lifecycle
	releaser  MutexReleaser

	busy atomic.Bool

	mu        sync.Mutex
	state     State
	instances []Instance
	batchID   string
}

func New(config Config, launcher Launcher, lifecycle Lifecycle, releaser MutexReleaser) (*Orchestrator, error) {
	if launcher == nil || lifecycle == nil || releaser == nil {
		return nil, fmt.Errorf("orchestrator needs a launcher, a lifecycle controller and a mutex releaser")
	}

	if config.MutexName == "" {
		return nil, fmt.Errorf("orchestrator needs a mutex name")
	}

	if config.SettleDelay < 0 {
		config.SettleDelay = 0
	}

	return &Orchestrator{
		config:    config,
		launcher:  launcher,
		lifecycle: lifecycle,
		releaser:  releaser,
		state:     StateIdle,
	}, nil
}

// State is the current state of the batch state machine.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// Instances returns a copy of the tracked instances.
func (o *Orchestrator) Instances() []Instance {
	o.mu.Lock()
	defer o.mu.Unlock()

	return append([]Instance(nil), o.instances...)
}

// Track adds or replaces a tracked instance, typically one launched by an
// earlier run. A zero Index gets the next free number.
func (o *Orchestrator) Track(instance Instance) error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrBatchInProgress
	}
	defer o.busy.Store(false)

	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.instances {
		if o.instances[i].PID == instance.PID {
			if instance.Index == 0 {
				instance.Index = o.instances[i].Index
			}

			o.instances[i] = instance
			return nil
		}
	}

	if instance.Index == 0 {
		instance.Index = o.nextIndexLocked()
	}

	o.instances = append(o.instances, instance)
	return nil
}

// Forget stops tracking pid. The process itself is left alone.
func (o *Orchestrator) Forget(pid uint32) error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrBatchInProgress
	}
	defer o.busy.Store(false)

	if !o.untrack(pid) {
		return fmt.Errorf("%w: pid %d", ErrNotTracked, pid)
	}

	return nil
}

// LaunchInstances launches count copies one after the other. A failed mutex
// release is reported and the batch goes on; a failed launch stops the batch.
// Every process suspended by the batch is resumed before it returns, including
// on failure and cancellation.
func (o *Orchestrator) LaunchInstances(ctx context.Context, count int) (*BatchReport, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}

	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBatchInProgress
	}
	defer o.busy.Store(false)

	report := &BatchReport{
		BatchID:   uuid.NewString(),
		Requested: count,
		Releases:  map[uint32]*handles.Release{},
		StartedAt: time.Now(),
	}

	o.mu.Lock()
	o.batchID = report.BatchID
	o.mu.Unlock()

	log.Infof("Starting batch %s of %d instances", report.BatchID, count)

	for _, instance := range o.Instances() {
		o.dropIfExited(instance)
	}

	suspendedInBatch := 0
	firstIndex := o.nextIndex()
	for i := 0; i < count; i++ {
		o.emit(Event{Type: EventQueued, Index: firstIndex + i})
	}

	var batchErr error
	for i := 0; i < count; i++ {
		if batchErr = o.transition(ctx, StateSuspendingPriors); batchErr != nil {
			break
		}

		suspendedInBatch += o.suspendPriors(report)

		if batchErr = o.transition(ctx, StateLaunching); batchErr != nil {
			break
		}

		process, err := o.launcher.Launch(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				batchErr = ctxErr
			} else {
				batchErr = fmt.Errorf("%w: %w", ErrProcessLaunchFailed, err)
			}

			break
		}

		instance := Instance{
			Index:      o.nextIndex(),
			PID:        process.PID,
			Path:       process.Path,
			LaunchedAt: process.StartedAt,
		}

		o.mu.Lock()
		o.instances = append(o.instances, instance)
		o.mu.Unlock()

		report.Launched = append(report.Launched, instance)
		o.emit(Event{Type: EventLaunched, Index: instance.Index, PID: instance.PID})

		if batchErr = o.transition(ctx, StateSettling); batchErr != nil {
			break
		}

		if batchErr = sleep(ctx, o.config.SettleDelay); batchErr != nil {
			break
		}

		if batchErr = o.transition(ctx, StateInterrogating); batchErr != nil {
			break
		}

		release, err := o.release(ctx, instance)
		if release != nil {
			report.Releases[instance.PID] = release
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			batchErr = ctxErr
			break
		}

		if err != nil {
			report.ReleaseFailures++
		} else {
			report.Released++
		}
	}

	if batchErr != nil {
		o.setState(StateFailed)
		log.Warnf("Batch %s failed: %v", report.BatchID, batchErr)
	}

	if suspendedInBatch > 0 || o.anySuspended() {
		o.setState(StateResumingAll)
		report.ResumedPIDs = o.resumeAll()
	}

	report.Launched = o.refresh(report.Launched)
	report.FinishedAt = time.Now()

	if batchErr != nil {
		o.setState(StateFailed)
		report.FinalState = StateFailed

		o.emit(Event{Type: EventFailed, Reason: batchErr.Error(), Err: batchErr})
		return report, batchErr
	}

	o.setState(StateDone)
	report.FinalState = StateDone

	o.emit(Event{Type: EventDone})
	log.Infof("Batch %s done: %d launched, %d released", report.BatchID, len(report.Launched), report.Released)

	return report, nil
}

// CloseTrackedMutex retries the mutex release of a tracked instance. The
// instance is suspended while its handles are inspected.
func (o *Orchestrator) CloseTrackedMutex(ctx context.Context, pid uint32) (*handles.Release, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBatchInProgress
	}
	defer o.busy.Store(false)

	instance, ok := o.lookup(pid)
	if !ok {
		return nil, fmt.Errorf("%w: pid %d", ErrNotTracked, pid)
	}

	o.mu.Lock()
	o.batchID = ""
	o.mu.Unlock()

	if o.dropIfExited(instance) {
		return nil, fmt.Errorf("%w: pid %d", ErrInstanceExited, pid)
	}

	if instance.Suspended {
		log.Debugf("Pid %d is already suspended", pid)
	} else if _, err := o.lifecycle.Suspend(pid); err != nil {
		log.Warnf("Inspecting pid %d without suspending it: %v", pid, err)
	} else {
		o.markSuspended(pid, true)
		o.emit(Event{Type: EventSuspended, Index: instance.Index, PID: pid})

		defer o.resume(pid)
	}

	if err := o.transition(ctx, StateInterrogating); err != nil {
		return nil, err
	}

	release, err := o.release(ctx, instance)
	o.setState(StateIdle)

	return release, err
}

// release runs the Interrogating and ReleasingMutex steps for one instance
// and records the outcome on it.
func (o *Orchestrator) release(ctx context.Context, instance Instance) (*handles.Release, error) {
	target := handles.MutexTarget{Name: o.config.MutexName, OwnerPID: instance.PID}

	release, err := o.releaser.Locate(ctx, target)
	if err == nil {
		o.setState(StateReleasingMutex)
		err = o.releaser.Close(ctx, release)
	}

	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return release, ctxErr
	}

	o.mu.Lock()
	for i := range o.instances {
		if o.instances[i].PID != instance.PID {
			continue
		}

		o.instances[i].MutexReleased = err == nil
		o.instances[i].LastError = ""
		if err != nil {
			o.instances[i].LastError = err.Error()
		}
	}
	o.mu.Unlock()

	if err != nil {
		log.Warnf("Failed to release %s in pid %d: %v", target.Name, target.OwnerPID, err)
		o.emit(Event{Type: EventMutexReleaseFailed, Index: instance.Index, PID: instance.PID, Reason: releaseReason(err), Err: err})

		return release, err
	}

	o.emit(Event{Type: EventMutexReleased, Index: instance.Index, PID: instance.PID})
	return release, nil
}

// suspendPriors suspends every tracked instance that is alive and not already
// suspended, and drops the ones that exited. It returns the number of
// processes it suspended.
func (o *Orchestrator) suspendPriors(report *BatchReport) int {
	suspended := 0

	for _, instance := range o.Instances() {
		if instance.Suspended {
			continue
		}

		if o.dropIfExited(instance) {
			continue
		}

		report.SuspendCalls++

		suspension, err := o.lifecycle.Suspend(instance.PID)
		if err != nil {
			log.Warnf("Failed to suspend pid %d: %v", instance.PID, err)
			o.setLastError(instance.PID, err)

			continue
		}

		suspended++
		o.markSuspended(instance.PID, true)
		o.emit(Event{Type: EventSuspended, Index: instance.Index, PID: instance.PID})

		log.Debugf("Suspended pid %d (%d threads)", instance.PID, len(suspension.Tokens))
	}

	return suspended
}

// resumeAll runs one resume pass over the tracked instances. Instances the
// batch suspended are always resumed. The rest are skipped once they are
// known to have exited. Held instances stay suspended.
func (o *Orchestrator) resumeAll() []uint32 {
	var resumed []uint32

	for _, instance := range o.Instances() {
		if instance.Held {
			continue
		}

		if !instance.Suspended && o.dropIfExited(instance) {
			continue
		}

		if o.resume(instance.PID) {
			resumed = append(resumed, instance.PID)
			continue
		}

		o.dropIfExited(instance)
	}

	return resumed
}

func (o *Orchestrator) anySuspended() bool {
	for _, instance := range o.Instances() {
		if instance.Suspended && !instance.Held {
			return true
		}
	}

	return false
}

// dropIfExited stops tracking instance once its process is known to be gone.
// A failed liveness check keeps it tracked.
func (o *Orchestrator) dropIfExited(instance Instance) bool {
	running, err := o.lifecycle.Alive(instance.PID)
	if err != nil {
		log.Debugf("Keeping pid %d tracked: %v", instance.PID, err)
		return false
	}

	if running {
		return false
	}

	log.Debugf("Tracked pid %d has exited", instance.PID)

	o.untrack(instance.PID)
	o.emit(Event{Type: EventExited, Index: instance.Index, PID: instance.PID})

	return true
}

func (o *Orchestrator) resume(pid uint32) bool {
	instance, _ := o.lookup(pid)

	if _, err := o.lifecycle.Resume(pid); err != nil {
		log.Errorf("Failed to resume pid %d: %v", pid, err)
		o.setLastError(pid, err)

		return false
	}

	o.markSuspended(pid, false)
	o.emit(Event{Type: EventResumed, Index: instance.Index, PID: pid})

	return true
}

// transition moves the state machine to next unless ctx is done.
func (o *Orchestrator) transition(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.setState(next)
	return nil
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	changed := o.state != state
	o.state = state
	o.mu.Unlock()

	if changed {
		o.emit(Event{Type: EventStateChanged})
	}
}

func (o *Orchestrator) emit(event Event) {
	o.mu.Lock()
	event.BatchID = o.batchID
	event.State = o.state
	o.mu.Unlock()

	event.Time = time.Now()

	if o.config.OnEvent != nil {
		o.config.OnEvent(event)
	}
}

func (o *Orchestrator) lookup(pid uint32) (Instance, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, instance := range o.instances {
		if instance.PID == pid {
			return instance, true
		}
	}

	return Instance{}, false
}

func (o *Orchestrator) untrack(pid uint32) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, instance := range o.instances {
		if instance.PID == pid {
			o.instances = append(o.instances[:i], o.instances[i+1:]...)
			return true
		}
	}

	return false
}

func (o *Orchestrator) markSuspended(pid uint32, suspended bool) {
	o.update(pid, func(instance *Instance) {
		instance.Suspended = suspended
	})
}

func (o *Orchestrator) setLastError(pid uint32, err error) {
	o.update(pid, func(instance *Instance) {
		instance.LastError = err.Error()
	})
}

func (o *Orchestrator) update(pid uint32, fn func(*Instance)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i := range o.instances {
		if o.instances[i].PID == pid {
			fn(&o.instances[i])
		}
	}
}

// refresh replaces launched instances with their current tracked state.
func (o *Orchestrator) refresh(launched []Instance) []Instance {
	out := make([]Instance, 0, len(launched))
	for _, instance := range launched {
		if current, ok := o.lookup(instance.PID); ok {
			instance = current
		}

		out = append(out, instance)
	}

	return out
}

func (o *Orchestrator) nextIndex() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.nextIndexLocked()
}

func (o *Orchestrator) nextIndexLocked() int {
	next := 1
	for _, instance := range o.instances {
		if instance.Index >= next {
			next = instance.Index + 1
		}
	}

	return next
}

func releaseReason(err error) string {
	switch {
	case errors.Is(err, handles.ErrMutexNotFound):
		return "mutex not found"
	case errors.Is(err, handles.ErrAmbiguousMatch):
		return "more than one matching handle"
	case errors.Is(err, handles.ErrDuplicateHandleFailed):
		return "handle could not be closed"
	case errors.Is(err, handles.ErrSizeNegotiationExhausted):
		return "handle table kept growing"
	}

	return err.Error()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
