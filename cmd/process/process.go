package process

import (
	"context"
	"fmt"

	"github.com/safedep/unmutex/cmd/internal/pidarg"
	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/flows"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/spf13/cobra"
)

const suspendLong = `Pause every thread of a process. A tracked instance paused here stays
paused through later launch and release runs until 'unmutex resume' is used.`

func NewSuspendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "suspend <pid>",
		Short: "Pause every thread of a process",
		Long:  suspendLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := pidarg.Parse(args[0])
			if err != nil {
				ui.ErrorExit(err)
			}

			if err := executeSuspend(cmd.Context(), pid); err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}
}

func NewResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <pid>",
		Short: "Resume every thread of a process, however often it was paused",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := pidarg.Parse(args[0])
			if err != nil {
				ui.ErrorExit(err)
			}

			if err := executeResume(cmd.Context(), pid); err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}
}

func executeSuspend(ctx context.Context, pid uint32) error {
	deps, err := flows.DefaultDependencies(config.Get())
	if err != nil {
		return err
	}

	threads, err := flows.Process(deps).Suspend(ctx, pid)
	if err != nil {
		return fmt.Errorf("failed to suspend pid %d: %w", pid, err)
	}

	ui.Successf("Suspended %d threads of pid %d", threads, pid)
	return nil
}

func executeResume(ctx context.Context, pid uint32) error {
	deps, err := flows.DefaultDependencies(config.Get())
	if err != nil {
		return err
	}

	calls, err := flows.Process(deps).Resume(ctx, pid)
	if err != nil {
		return fmt.Errorf("failed to resume pid %d: %w", pid, err)
	}

	ui.Successf("Resumed pid %d (%d resume calls)", pid, calls)
	return nil
}
