package ui

import (
	"fmt"
	"time"

	"github.com/safedep/unmutex/orchestrator"
)

// BatchOutcome is the final result of one launch batch.
type BatchOutcome int

const (
	OutcomeSuccess BatchOutcome = iota
	OutcomePartial
	OutcomeCanceled
	OutcomeFailed
)

func (o BatchOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReportData captures what the post batch report shows. It holds no
// rendering logic.
type ReportData struct {
	BatchID    string
	Profile    string
	Executable string
	MutexName  string

	Requested       int
	Launched        []orchestrator.Instance
	Released        int
	ReleaseFailures int
	SuspendCalls    int
	Resumed         int

	// Open is the number of tracked instances still running after the batch.
	Open int

	FinalState orchestrator.State
	Duration   time.Duration
	Err        error
	Outcome    BatchOutcome
}

// NewReportData copies the batch report. The caller sets Outcome.
func NewReportData(report *orchestrator.BatchReport, err error) *ReportData {
	data := &ReportData{Err: err}

	if report != nil {
		data.BatchID = report.BatchID
		data.Requested = report.Requested
		data.Launched = report.Launched
		data.Released = report.Released
		data.ReleaseFailures = report.ReleaseFailures
		data.SuspendCalls = report.SuspendCalls
		data.Resumed = len(report.ResumedPIDs)
		data.FinalState = report.FinalState
		data.Duration = report.FinishedAt.Sub(report.StartedAt)
	}

	return data
}

func (r *ReportData) WasSuccessful() bool {
	return r.Outcome == OutcomeSuccess
}

// Report renders the batch report based on verbosity level.
func Report(data *ReportData) {
	ClearStatus()

	switch verbosityLevel {
	case VerbosityLevelSilent:
		if !data.WasSuccessful() {
			fmt.Println(summaryLine(data))
		}
	case VerbosityLevelNormal:
		fmt.Println(summaryLine(data))
	case VerbosityLevelVerbose:
		reportVerbose(data)
	}
}

func summaryLine(data *ReportData) string {
	var icon, message string

	launched := len(data.Launched)

	switch data.Outcome {
	case OutcomeSuccess:
		icon = Colors.Green("✓")
		message = fmt.Sprintf("%d instances open (%d launched, %d mutexes released)",
			data.Open, launched, data.Released)
	case OutcomePartial:
		icon = Colors.Yellow("!")
		message = fmt.Sprintf("%d instances open (%d launched, %d releases failed)",
			data.Open, launched, data.ReleaseFailures)
	case OutcomeCanceled:
		icon = Colors.Yellow("✗")
		message = fmt.Sprintf("Canceled after %d of %d launches, paused instances resumed",
			launched, data.Requested)
	default:
		icon = Colors.Red("✗")
		message = fmt.Sprintf("Batch failed after %d of %d launches, paused instances resumed",
			launched, data.Requested)
	}

	return fmt.Sprintf("%s %s", icon, message)
}

func reportVerbose(data *ReportData) {
	fmt.Println()
	fmt.Println(Colors.Cyan("unmutex batch report"))
	fmt.Println(Colors.Normal("────────────────────────────────────────"))

	fmt.Printf("  %s\n", summaryLine(data))
	fmt.Println()

	fmt.Printf("  %s %s\n", Colors.Bold("Batch:"), data.BatchID)
	fmt.Printf("  %s %s | %s\n", Colors.Bold("Target:"), data.Profile, data.Executable)
	fmt.Printf("  %s %s\n", Colors.Bold("Mutex:"), data.MutexName)
	fmt.Printf("  %s %s in %s (suspend calls: %d, resumed: %d)\n",
		Colors.Bold("State:"),
		StateColor(data.FinalState)("%s", data.FinalState),
		formatDuration(data.Duration),
		data.SuspendCalls,
		data.Resumed)

	if data.Err != nil {
		fmt.Printf("  %s %s\n", Colors.Bold("Error:"), Colors.Red("%s", data.Err))
	}

	if len(data.Launched) > 0 {
		fmt.Println()
		fmt.Print(RenderInstances(data.Launched, nil))
	}

	fmt.Println()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	return fmt.Sprintf("%.1fs", d.Seconds())
}

func boolToYesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
