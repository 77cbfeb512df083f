package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/safedep/unmutex/orchestrator"
	"github.com/stretchr/testify/assert"
)

func TestNewReportData(t *testing.T) {
	started := time.Now()
	report := &orchestrator.BatchReport{
		BatchID:         "b-1",
		Requested:       3,
		Launched:        []orchestrator.Instance{{Index: 1, PID: 10}, {Index: 2, PID: 20}},
		Released:        1,
		ReleaseFailures: 1,
		SuspendCalls:    2,
		ResumedPIDs:     []uint32{10},
		FinalState:      orchestrator.StateDone,
		StartedAt:       started,
		FinishedAt:      started.Add(1500 * time.Millisecond),
	}

	err := errors.New("boom")
	data := NewReportData(report, err)

	assert.Equal(t, "b-1", data.BatchID)
	assert.Equal(t, 3, data.Requested)
	assert.Len(t, data.Launched, 2)
	assert.Equal(t, 1, data.Released)
	assert.Equal(t, 1, data.ReleaseFailures)
	assert.Equal(t, 2, data.SuspendCalls)
	assert.Equal(t, 1, data.Resumed)
	assert.Equal(t, 1500*time.Millisecond, data.Duration)
	assert.Equal(t, err, data.Err)
}

func TestNewReportDataWithoutReport(t *testing.T) {
	data := NewReportData(nil, context.Canceled)

	assert.Empty(t, data.BatchID)
	assert.Zero(t, data.Duration)
	assert.ErrorIs(t, data.Err, context.Canceled)
}

func TestWasSuccessful(t *testing.T) {
	assert.True(t, (&ReportData{Outcome: OutcomeSuccess}).WasSuccessful())
	assert.False(t, (&ReportData{Outcome: OutcomePartial}).WasSuccessful())
	assert.False(t, (&ReportData{Outcome: OutcomeFailed}).WasSuccessful())
}

func TestSummaryLine(t *testing.T) {
	data := NewReportData(&orchestrator.BatchReport{
		Requested:  3,
		Launched:   []orchestrator.Instance{{PID: 1}, {PID: 2}, {PID: 3}},
		Released:   3,
		FinalState: orchestrator.StateDone,
	}, nil)
	data.Open = 4

	assert.Contains(t, summaryLine(data), "4 instances open (3 launched, 3 mutexes released)")

	failed := NewReportData(&orchestrator.BatchReport{
		Requested:  3,
		Launched:   []orchestrator.Instance{{PID: 1}},
		FinalState: orchestrator.StateFailed,
	}, orchestrator.ErrProcessLaunchFailed)
	failed.Outcome = OutcomeFailed

	assert.Contains(t, summaryLine(failed), "Batch failed after 1 of 3 launches")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "partial", OutcomePartial.String())
	assert.Equal(t, "canceled", OutcomeCanceled.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "unknown", BatchOutcome(42).String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "800ms", formatDuration(800*time.Millisecond))
	assert.Equal(t, "2.5s", formatDuration(2500*time.Millisecond))
}
