package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/safedep/unmutex/orchestrator"
)

// ProgressTracker defines the interface for tracking progress
type ProgressTracker interface {
	Increment(count int64)
	UpdateTotal(count int64)
	MarkAsDone()
	MarkAsErrored()
	GetValue() int64
	GetTotal() int64
}

type progressTrackerImpl struct {
	tracker *progress.Tracker
}

func (p *progressTrackerImpl) Increment(count int64) {
	p.tracker.Increment(count)
}

func (p *progressTrackerImpl) UpdateTotal(count int64) {
	p.tracker.UpdateTotal(count)
}

func (p *progressTrackerImpl) MarkAsDone() {
	p.tracker.MarkAsDone()
}

func (p *progressTrackerImpl) MarkAsErrored() {
	p.tracker.MarkAsErrored()
}

func (p *progressTrackerImpl) GetValue() int64 {
	return p.tracker.Value()
}

func (p *progressTrackerImpl) GetTotal() int64 {
	return p.tracker.Total
}

var progressWriter progress.Writer

func StartProgressWriter() {
	pw := progress.NewWriter()

	pw.SetAutoStop(false)
	pw.SetTrackerLength(25)
	pw.SetMessageLength(24)
	pw.SetStyle(progress.StyleDefault)
	pw.SetOutputWriter(os.Stderr)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetUpdateFrequency(time.Millisecond * 100)
	pw.Style().Colors = progress.StyleColorsExample
	pw.Style().Options.PercentFormat = "%4.1f%%"
	pw.Style().Visibility.Pinned = true
	pw.Style().Visibility.Value = true

	progressWriter = pw
	go progressWriter.Render()
}

func StopProgressWriter() {
	if progressWriter != nil {
		progressWriter.Stop()

		// Let the renderer flush its last frame.
		time.Sleep(200 * time.Millisecond)
		progressWriter = nil
	}
}

func SetPinnedMessageOnProgressWriter(msg string) {
	if progressWriter != nil {
		progressWriter.SetPinnedMessages(msg)
	}
}

// TrackProgress adds a tracker to the running progress writer, if any.
func TrackProgress(message string, total int) ProgressTracker {
	tracker := progress.Tracker{Message: message, Total: int64(total),
		Units: progress.UnitsDefault}

	if progressWriter != nil {
		progressWriter.AppendTracker(&tracker)
	}

	return &progressTrackerImpl{tracker: &tracker}
}

// BatchProgress turns orchestrator events into a progress bar with the
// current state pinned above it.
type BatchProgress struct {
	tracker  ProgressTracker
	total    int
	launched int
}

func NewBatchProgress(count int) *BatchProgress {
	return &BatchProgress{tracker: TrackProgress("Instances", count), total: count}
}

func (b *BatchProgress) OnEvent(event orchestrator.Event) {
	switch event.Type {
	case orchestrator.EventStateChanged:
		SetPinnedMessageOnProgressWriter(StateColor(event.State)("%s", b.stateMessage(event.State)))
	case orchestrator.EventLaunched:
		b.launched++
	case orchestrator.EventMutexReleased, orchestrator.EventMutexReleaseFailed:
		b.tracker.Increment(1)
	case orchestrator.EventFailed:
		b.tracker.MarkAsErrored()
	case orchestrator.EventDone:
		b.tracker.MarkAsDone()
	}
}

// Tracker exposes the underlying tracker.
func (b *BatchProgress) Tracker() ProgressTracker {
	return b.tracker
}

// stateMessage is the status line shown for each stage of a launch.
func (b *BatchProgress) stateMessage(state orchestrator.State) string {
	switch state {
	case orchestrator.StateSuspendingPriors:
		return "Pausing running instances"
	case orchestrator.StateLaunching:
		return fmt.Sprintf("Starting instance %d of %d", b.launched+1, b.total)
	case orchestrator.StateSettling:
		return fmt.Sprintf("Waiting for instance %d of %d", b.launched, b.total)
	case orchestrator.StateInterrogating:
		return fmt.Sprintf("Looking for the mutex of instance %d", b.launched)
	case orchestrator.StateReleasingMutex:
		return fmt.Sprintf("Closing the mutex of instance %d", b.launched)
	case orchestrator.StateResumingAll:
		return "Resuming instances"
	case orchestrator.StateDone:
		return "Done"
	case orchestrator.StateFailed:
		return "Failed"
	}

	return string(state)
}
