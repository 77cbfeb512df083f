package ui

import (
	"github.com/fatih/color"
	"github.com/safedep/unmutex/orchestrator"
)

type ColorFn func(format string, a ...any) string

type TerminalColors struct {
	Normal    ColorFn
	Red       ColorFn
	Yellow    ColorFn
	Cyan      ColorFn
	Green     ColorFn
	Magenta   ColorFn
	Bold      ColorFn
	Dim       ColorFn
	ErrorCode ColorFn
}

var Colors = TerminalColors{
	Normal:    color.New().SprintfFunc(),
	Red:       color.New(color.FgRed, color.Bold).SprintfFunc(),
	Yellow:    color.New(color.FgYellow).SprintfFunc(),
	Cyan:      color.New(color.FgCyan).SprintfFunc(),
	Green:     color.New(color.FgGreen).SprintfFunc(),
	Magenta:   color.New(color.FgMagenta).SprintfFunc(),
	Bold:      color.New(color.Bold).SprintfFunc(),
	Dim:       color.New(color.Faint).SprintfFunc(),
	ErrorCode: color.New(color.BgRed, color.FgBlack, color.Bold).SprintfFunc(),
}

// StateColor picks the color used to print a batch state.
func StateColor(state orchestrator.State) ColorFn {
	switch state {
	case orchestrator.StateDone:
		return Colors.Green
	case orchestrator.StateFailed:
		return Colors.Red
	case orchestrator.StateSuspendingPriors, orchestrator.StateResumingAll:
		return Colors.Magenta
	case orchestrator.StateInterrogating, orchestrator.StateReleasingMutex:
		return Colors.Yellow
	case orchestrator.StateIdle:
		return Colors.Dim
	}

	return Colors.Cyan
}
