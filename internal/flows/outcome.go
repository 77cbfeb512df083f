package flows

import (
	"context"
	"errors"

	"github.com/safedep/unmutex/internal/ui"
	"github.com/safedep/unmutex/orchestrator"
)

// inferOutcome classifies a finished batch.
//
// Outcome precedence:
//  1. Cancellation
//  2. Error or failed state machine
//  3. Some mutex releases failed
//  4. Success
func inferOutcome(report *orchestrator.BatchReport, err error) ui.BatchOutcome {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ui.OutcomeCanceled
	}

	if err != nil || report == nil || report.FinalState == orchestrator.StateFailed {
		return ui.OutcomeFailed
	}

	if report.ReleaseFailures > 0 {
		return ui.OutcomePartial
	}

	return ui.OutcomeSuccess
}
