package ui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/safedep/unmutex/handles"
	"github.com/safedep/unmutex/internal/session"
	"github.com/safedep/unmutex/launcher"
	"github.com/safedep/unmutex/ntapi"
	"github.com/safedep/unmutex/orchestrator"
	"github.com/safedep/unmutex/usefulerror"
)

// errorMatcher defines how to detect and convert a specific error type
type errorMatcher struct {
	match   func(err error) bool
	convert func(err error) usefulerror.UsefulError
}

func is(target error) func(error) bool {
	return func(err error) bool {
		return errors.Is(err, target)
	}
}

// errorMatchers is an ordered list of error matchers
// Order matters - more specific matchers should come first
var errorMatchers = []errorMatcher{
	{
		match: is(ntapi.ErrUnsupportedPlatform),
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeUnsupportedPlatform).
				WithHumanError("This command only works on Windows").
				WithHelp("Run unmutex on the Windows machine where the application is installed").
				Wrap(err)
		},
	},
	{
		match: func(err error) bool {
			return errors.Is(err, orchestrator.ErrBatchInProgress) || errors.Is(err, session.ErrLockTimeout)
		},
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeBatchInProgress).
				WithHumanError("Another unmutex command is still running").
				WithHelp("Wait for it to finish and try again").
				Wrap(err)
		},
	},
	{
		match: func(err error) bool {
			return errors.Is(err, orchestrator.ErrProcessLaunchFailed) || errors.Is(err, launcher.ErrInvalidPath)
		},
		convert: func(err error) usefulerror.UsefulError {
			humanError := "The application could not be started"

			var launchErr *launcher.LaunchError
			if errors.As(err, &launchErr) {
				humanError = fmt.Sprintf("The application could not be started: %s", launchErr.Path)
			}

			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeProcessLaunchFailed).
				WithHumanError(humanError).
				WithHelp("Check the executable path of the profile or pass --exe").
				WithAdditionalHelp("Instances started before the failure are still running and tracked").
				Wrap(err)
		},
	},
	{
		match: is(handles.ErrMutexNotFound),
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeMutexNotFound).
				WithHumanError("The single instance mutex was not found in the new process").
				WithHelp("Check the mutex name with 'unmutex inspect --pid <pid>'").
				WithAdditionalHelp("If the application needs longer to start, raise --settle").
				Wrap(err)
		},
	},
	{
		match: is(handles.ErrAmbiguousMatch),
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeMutexReleaseFailed).
				WithHumanError("More than one handle matched the mutex name").
				WithHelp("Use --match-policy first or all to close them anyway").
				Wrap(err)
		},
	},
	{
		match: is(handles.ErrDuplicateHandleFailed),
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeMutexReleaseFailed).
				WithHumanError("The mutex was found but could not be closed").
				WithHelp("Run unmutex as the same user as the application, or elevated").
				Wrap(err)
		},
	},
	{
		match: is(ntapi.ErrAccessDenied),
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodePermissionDenied).
				WithHumanError("Windows denied access to the process").
				WithHelp("Run unmutex as the same user as the application, or elevated").
				Wrap(err)
		},
	},
	{
		match: is(handles.ErrSizeNegotiationExhausted),
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeHandleTableTooLarge).
				WithHumanError("The system handle table kept growing while it was read").
				WithHelp("Try again, or raise max_size_attempts in the config").
				Wrap(err)
		},
	},
	{
		match: func(err error) bool {
			return errors.Is(err, orchestrator.ErrNotTracked) || errors.Is(err, orchestrator.ErrInstanceExited)
		},
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeNotTracked).
				WithHumanError("The process is not a running instance started by unmutex").
				WithHelp("List tracked instances with 'unmutex instances list'").
				Wrap(err)
		},
	},
	{
		match: is(orchestrator.ErrInvalidCount),
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeInvalidArgument).
				WithHumanError("The number of instances must be at least 1").
				WithHelp("Pass --count with a positive number").
				Wrap(err)
		},
	},
	{
		match: func(err error) bool {
			return errors.Is(err, os.ErrNotExist) || errors.Is(err, fs.ErrNotExist)
		},
		convert: func(err error) usefulerror.UsefulError {
			path := extractPathFromError(err)
			humanError := "File or directory not found"
			if path != "" {
				humanError = fmt.Sprintf("File or directory not found: %s", path)
			}

			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeNotFound).
				WithHumanError(humanError).
				WithHelp("Check if the path exists").
				Wrap(err)
		},
	},
	{
		match: func(err error) bool {
			return errors.Is(err, os.ErrPermission) || errors.Is(err, fs.ErrPermission)
		},
		convert: func(err error) usefulerror.UsefulError {
			path := extractPathFromError(err)
			humanError := "Permission denied"
			if path != "" {
				humanError = fmt.Sprintf("Permission denied: %s", path)
			}

			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodePermissionDenied).
				WithHumanError(humanError).
				WithHelp("Check the permissions of the file").
				Wrap(err)
		},
	},
	{
		match: is(context.DeadlineExceeded),
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeTimeout).
				WithHumanError("Operation timed out").
				WithHelp("Try again").
				Wrap(err)
		},
	},
	{
		match: is(context.Canceled),
		convert: func(err error) usefulerror.UsefulError {
			return usefulerror.Useful().
				WithCode(usefulerror.ErrCodeCanceled).
				WithHumanError("Operation was canceled").
				WithHelp("Every paused instance was resumed before exiting").
				Wrap(err)
		},
	},
}

// convertToUsefulError attempts to convert a regular error to a UsefulError
// by analyzing the error chain for known error types.
// Returns the original error wrapped in a generic UsefulError if no specific match is found.
func convertToUsefulError(err error) usefulerror.UsefulError {
	if err == nil {
		return nil
	}

	if ue, ok := usefulerror.AsUsefulError(err); ok {
		return ue
	}

	for _, matcher := range errorMatchers {
		if matcher.match(err) {
			return matcher.convert(err)
		}
	}

	return usefulerror.Useful().
		WithCode(usefulerror.ErrCodeUnknown).
		WithHumanError(extractRootCause(err)).
		WithHelp("An unexpected error occurred.").
		Wrap(err)
}

// extractRootCause traverses the error chain and returns the innermost error message.
func extractRootCause(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}

		err = unwrapped
	}
}

// extractPathFromError attempts to extract a file path from path-related errors
func extractPathFromError(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Path
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Old
	}

	return ""
}
