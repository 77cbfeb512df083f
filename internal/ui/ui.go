package ui

import (
	"fmt"
	"os"
	"strings"
)

// The UI is internal to unmutex and opinionated for the CLI.

type VerbosityLevel int

const (
	// Only errors and the final report
	VerbosityLevelSilent VerbosityLevel = iota

	// Show a status line for every stage of a batch
	VerbosityLevelNormal

	// Also show per instance details in the report
	VerbosityLevelVerbose
)

var verbosityLevel VerbosityLevel = VerbosityLevelNormal

func SetVerbosityLevel(level VerbosityLevel) {
	verbosityLevel = level
}

func Verbosity() VerbosityLevel {
	return verbosityLevel
}

func ClearStatus() {
	StopSpinner()
	fmt.Print("\r")
}

func SetStatus(status string) {
	if verbosityLevel == VerbosityLevelSilent {
		return
	}

	StopSpinner()

	fmt.Print("\r", Colors.Green(status), " ")
	StartSpinner(status)
}

// Successf prints a line prefixed with a check mark.
func Successf(format string, a ...any) {
	fmt.Printf("%s %s\n", Colors.Green("✓"), fmt.Sprintf(format, a...))
}

// Warnf prints a line prefixed with a warning sign. It is shown even in
// silent mode.
func Warnf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", Colors.Yellow("!"), Colors.Yellow(format, a...))
}

// Fatalf prints a plain error and exits. Prefer ErrorExit, which explains
// the error to the user.
func Fatalf(format string, a ...any) {
	ClearStatus()
	fmt.Fprintln(os.Stderr, Colors.Red(format, a...))
	os.Exit(1)
}

// Confirm asks a yes or no question. Anything but an answer starting with y
// is a no.
func Confirm(question string) bool {
	ClearStatus()
	fmt.Print(Colors.Yellow("%s (y/N) ", question))

	var response string

	// A read error is the same as no answer.
	_, _ = fmt.Scanln(&response)

	response = strings.ToLower(strings.TrimSpace(response))
	return strings.HasPrefix(response, "y")
}
