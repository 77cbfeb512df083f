package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/safedep/unmutex/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}

	require.NoError(t, scanner.Err())
	return events
}

func setupGlobal(t *testing.T) string {
	t.Helper()

	logDir := filepath.Join(t.TempDir(), "unmutex", "logs")
	require.NoError(t, reinitializeForTest(Config{Dir: logDir, RetentionDays: 7}))

	t.Cleanup(func() {
		assert.NoError(t, Close())
	})

	return filepath.Join(logDir, logFileName)
}

func TestNewCreatesDirectory(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "a", "b")

	logger, err := New(Config{Dir: logDir})
	require.NoError(t, err)
	defer logger.Close()

	assert.DirExists(t, logDir)
	assert.Equal(t, filepath.Join(logDir, logFileName), logger.Path())
}

func TestNewRequiresDirectory(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestLogEvent(t *testing.T) {
	path := setupGlobal(t)

	require.NoError(t, LogEvent(Event{
		EventType: EventTypeRelease,
		Message:   "released",
		PID:       1234,
		Details:   map[string]any{"matches": 1},
	}))

	events := readEvents(t, path)
	require.Len(t, events, 1)

	assert.Equal(t, EventTypeRelease, events[0].EventType)
	assert.Equal(t, uint32(1234), events[0].PID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.EqualValues(t, 1, events[0].Details["matches"])
}

func TestLogOrchestratorEvent(t *testing.T) {
	path := setupGlobal(t)

	now := time.Now()
	LogOrchestratorEvent(orchestrator.Event{Type: orchestrator.EventStateChanged, State: orchestrator.StateLaunching})
	LogOrchestratorEvent(orchestrator.Event{
		Type:    orchestrator.EventLaunched,
		BatchID: "batch-1",
		State:   orchestrator.StateLaunching,
		Index:   2,
		PID:     1008,
		Time:    now,
	})
	LogOrchestratorEvent(orchestrator.Event{
		Type:    orchestrator.EventMutexReleaseFailed,
		BatchID: "batch-1",
		PID:     1008,
		Reason:  "mutex not found",
		Err:     errors.New("mutex not found"),
	})

	events := readEvents(t, path)
	require.Len(t, events, 2, "state changes are not logged")

	assert.Equal(t, "launched", events[0].Step)
	assert.Equal(t, "batch-1", events[0].BatchID)
	assert.Equal(t, 2, events[0].Index)
	assert.Equal(t, "Instance 2 launched as process 1008", events[0].Message)
	assert.True(t, events[0].Timestamp.Equal(now))

	assert.Equal(t, "mutex_release_failed", events[1].Step)
	assert.Equal(t, "mutex not found", events[1].Details["error"])
}

func TestLogBatchFinished(t *testing.T) {
	path := setupGlobal(t)

	started := time.Now()
	LogBatchFinished(&orchestrator.BatchReport{
		BatchID:    "batch-2",
		Requested:  3,
		Launched:   []orchestrator.Instance{{PID: 1}, {PID: 2}},
		Released:   2,
		FinalState: orchestrator.StateFailed,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}, errors.New("launch failed"))

	LogBatchFinished(nil, nil)

	events := readEvents(t, path)
	require.Len(t, events, 1)

	assert.Equal(t, EventTypeBatchFinished, events[0].EventType)
	assert.Equal(t, "failed", events[0].State)
	assert.EqualValues(t, 2, events[0].Details["launched"])
	assert.EqualValues(t, 1000, events[0].Details["duration_ms"])
	assert.Equal(t, "launch failed", events[0].Details["error"])
}

func TestLogAfterCloseIsNoop(t *testing.T) {
	logger, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, logger.Log(Event{EventType: EventTypeError, Message: "one"}))
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Log(Event{EventType: EventTypeError, Message: "two"}))
	require.NoError(t, logger.Close())

	events := readEvents(t, logger.Path())
	assert.Len(t, events, 1)
}

func TestLogEventWithoutInitialization(t *testing.T) {
	globalLogger = nil
	once = sync.Once{}

	assert.NoError(t, LogEvent(Event{EventType: EventTypeError}))
	assert.False(t, IsInitialized())
	assert.Empty(t, LogPath())
}

func TestLogPath(t *testing.T) {
	path := setupGlobal(t)

	assert.True(t, IsInitialized())
	assert.Equal(t, path, LogPath())
}

func TestConcurrentLogging(t *testing.T) {
	path := setupGlobal(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(pid uint32) {
			defer wg.Done()
			LogProcessAction(EventTypeSuspend, pid, "suspended", nil)
		}(uint32(i + 1))
	}

	wg.Wait()

	assert.Len(t, readEvents(t, path), 20)
}
