// Package eventlog writes one JSON line per batch event so that a run can be
// audited after the fact.
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/safedep/unmutex/orchestrator"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName = "unmutex-events.log"

	maxSizeMB  = 10
	maxBackups = 10
)

// EventType represents the type of event being logged
type EventType string

const (
	EventTypeBatchStarted  EventType = "batch_started"
	EventTypeBatchFinished EventType = "batch_finished"
	EventTypeBatch         EventType = "batch_event"
	EventTypeRelease       EventType = "release"
	EventTypeSuspend       EventType = "suspend"
	EventTypeResume        EventType = "resume"
	EventTypeError         EventType = "error"
)

type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType EventType      `json:"event_type"`
	Message   string         `json:"message"`
	BatchID   string         `json:"batch_id,omitempty"`
	Step      string         `json:"step,omitempty"`
	State     string         `json:"state,omitempty"`
	Index     int            `json:"index,omitempty"`
	PID       uint32         `json:"pid,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type Config struct {
	// Dir receives unmutex-events.log and its rotated backups.
	Dir string

	// RetentionDays removes rotated files older than this. 0 keeps them.
	RetentionDays int
}

type Logger struct {
	writer io.WriteCloser
	path   string
	mu     sync.Mutex
	active bool
}

var (
	globalLogger *Logger
	once         sync.Once
)

// New opens a rotating event log in config.Dir.
func New(config Config) (*Logger, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("event log directory cannot be empty")
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(config.Dir, logFileName)

	return &Logger{
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxAge:     config.RetentionDays,
			MaxBackups: maxBackups,
		},
		path:   path,
		active: true,
	}, nil
}

// Initialize sets up the global event logger. Only the first call has an effect.
func Initialize(config Config) error {
	var initErr error
	once.Do(func() {
		globalLogger, initErr = New(config)
	})

	return initErr
}

// reinitializeForTest resets and reinitializes the logger for testing purposes
func reinitializeForTest(config Config) error {
	if globalLogger != nil {
		globalLogger.Close()
	}

	globalLogger = nil
	once = sync.Once{}

	return Initialize(config)
}

// Path returns the file events are currently written to.
func (l *Logger) Path() string {
	return l.path
}

// Log writes an event to the log file
func (l *Logger) Log(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return nil
	}

	l.active = false
	return l.writer.Close()
}

// LogEvent logs an event using the global logger
func LogEvent(event Event) error {
	if globalLogger == nil {
		return nil
	}

	return globalLogger.Log(event)
}

// LogBatchStarted records the parameters of a launch batch.
func LogBatchStarted(count int, executable, mutexName string) {
	LogEvent(Event{
		EventType: EventTypeBatchStarted,
		Message:   fmt.Sprintf("Launching %d instance(s) of %s", count, executable),
		Details: map[string]any{
			"count":      count,
			"executable": executable,
			"mutex_name": mutexName,
		},
	})
}

// LogOrchestratorEvent records one step of a batch. State changes are skipped,
// the step events carry the state already.
func LogOrchestratorEvent(event orchestrator.Event) {
	if event.Type == orchestrator.EventStateChanged {
		return
	}

	logged := Event{
		Timestamp: event.Time,
		EventType: EventTypeBatch,
		Message:   batchMessage(event),
		BatchID:   event.BatchID,
		Step:      string(event.Type),
		State:     string(event.State),
		Index:     event.Index,
		PID:       event.PID,
	}

	if event.Err != nil {
		logged.Details = map[string]any{"error": event.Err.Error()}
	}

	LogEvent(logged)
}

// LogBatchFinished records the outcome of a batch.
func LogBatchFinished(report *orchestrator.BatchReport, err error) {
	if report == nil {
		return
	}

	event := Event{
		EventType: EventTypeBatchFinished,
		Message: fmt.Sprintf("Batch finished in state %s: %d launched, %d released",
			report.FinalState, len(report.Launched), report.Released),
		BatchID: report.BatchID,
		State:   string(report.FinalState),
		Details: map[string]any{
			"requested":        report.Requested,
			"launched":         len(report.Launched),
			"released":         report.Released,
			"release_failures": report.ReleaseFailures,
			"suspend_calls":    report.SuspendCalls,
			"resumed_pids":     report.ResumedPIDs,
			"duration_ms":      report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
		},
	}

	if err != nil {
		event.Details["error"] = err.Error()
	}

	LogEvent(event)
}

// LogProcessAction records a single command such as suspend, resume or release.
func LogProcessAction(eventType EventType, pid uint32, message string, err error) {
	event := Event{
		EventType: eventType,
		Message:   message,
		PID:       pid,
	}

	if err != nil {
		event.Details = map[string]any{"error": err.Error()}
	}

	LogEvent(event)
}

// LogError logs an error event
func LogError(message string, err error) {
	LogEvent(Event{
		EventType: EventTypeError,
		Message:   message,
		Details: map[string]any{
			"error": err.Error(),
		},
	})
}

func batchMessage(event orchestrator.Event) string {
	switch event.Type {
	case orchestrator.EventQueued:
		return fmt.Sprintf("Instance %d queued", event.Index)
	case orchestrator.EventSuspended:
		return fmt.Sprintf("Suspended process %d", event.PID)
	case orchestrator.EventLaunched:
		return fmt.Sprintf("Instance %d launched as process %d", event.Index, event.PID)
	case orchestrator.EventMutexReleased:
		return fmt.Sprintf("Mutex released in process %d", event.PID)
	case orchestrator.EventMutexReleaseFailed:
		return fmt.Sprintf("Mutex release failed in process %d: %s", event.PID, event.Reason)
	case orchestrator.EventExited:
		return fmt.Sprintf("Process %d exited and is no longer tracked", event.PID)
	case orchestrator.EventResumed:
		return fmt.Sprintf("Resumed process %d", event.PID)
	case orchestrator.EventFailed:
		return fmt.Sprintf("Batch failed: %s", event.Reason)
	case orchestrator.EventDone:
		return "Batch done"
	}

	return string(event.Type)
}

// Close closes the global logger
func Close() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}

	return nil
}

// IsInitialized returns whether the global logger is initialized
func IsInitialized() bool {
	return globalLogger != nil && globalLogger.active
}

// LogPath returns the file the global logger writes to, or "" when logging
// is off.
func LogPath() string {
	if !IsInitialized() {
		return ""
	}

	return globalLogger.Path()
}
