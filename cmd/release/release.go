package release

import (
	"context"
	"fmt"

	"github.com/safedep/unmutex/cmd/internal/pidarg"
	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/flows"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/spf13/cobra"
)

func NewReleaseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "release <pid>",
		Short: "Close the guard mutex of a tracked instance again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := pidarg.Parse(args[0])
			if err != nil {
				ui.ErrorExit(err)
			}

			if err := executeReleaseFlow(cmd.Context(), pid); err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}
}

func executeReleaseFlow(ctx context.Context, pid uint32) error {
	deps, err := flows.DefaultDependencies(config.Get())
	if err != nil {
		return err
	}

	ui.SetStatus(fmt.Sprintf("Releasing mutex of pid %d", pid))
	release, err := flows.Release(deps).Run(ctx, pid)
	ui.ClearStatus()

	if release != nil && len(release.Matches) > 0 {
		fmt.Print(ui.RenderRelease(release))
	}

	if err != nil {
		return err
	}

	ui.Successf("Released %d handle(s) in pid %d", len(release.Closed), pid)
	return nil
}
