package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/safedep/unmutex/usefulerror"
)

const issuesURL = "https://github.com/safedep/unmutex/issues/new?assignees=&labels=bug"

// ErrorExit explains the error to the user and exits with a non-zero status code.
func ErrorExit(err error) {
	usefulErr := convertToUsefulError(err)
	if usefulErr == nil {
		os.Exit(1)
	}

	ClearStatus()

	fmt.Fprintln(os.Stderr, Colors.Red("Error occurred: %s", usefulErr.HumanError()))
	if detail := errorDetail(usefulErr); detail != "" {
		fmt.Fprintln(os.Stderr, Colors.Red("%s", detail))
	}

	fmt.Fprintln(os.Stderr, Colors.Yellow(usefulErr.Help()))

	if additionalHelp := usefulErr.AdditionalHelp(); additionalHelp != "" {
		fmt.Fprintln(os.Stderr, Colors.Yellow(additionalHelp))
	} else if usefulErr.Code() == usefulerror.ErrCodeUnknown {
		fmt.Fprintln(os.Stderr, Colors.Yellow("If you believe this is a bug, please report it at: %s", issuesURL))
	}

	fmt.Fprintln(os.Stderr, Colors.Dim("(%s) %s", usefulErr.Code(), err))

	os.Exit(1)
}

// errorDetail names the process and the Windows error code, if known.
func errorDetail(ue usefulerror.UsefulError) string {
	var parts []string
	if ue.PID() != 0 {
		parts = append(parts, fmt.Sprintf("Process: %d", ue.PID()))
	}

	if ue.OSCode() != 0 {
		parts = append(parts, fmt.Sprintf("Windows error: %d (0x%x)", ue.OSCode(), ue.OSCode()))
	}

	return strings.Join(parts, ", ")
}
