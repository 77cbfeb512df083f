package inspect

import (
	"context"
	"fmt"

	"github.com/safedep/unmutex/cmd/internal/pidarg"
	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/flows"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/spf13/cobra"
)

var (
	inspectAll     bool
	inspectSuspend bool
)

func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <pid>",
		Short: "List the named handles of a process",
		Long: "List the handles of a process with their object names. Use it to find the " +
			"mutex name of an application that has no profile yet.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := pidarg.Parse(args[0])
			if err != nil {
				ui.ErrorExit(err)
			}

			if err := executeInspectFlow(cmd.Context(), pid); err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&inspectAll, "all", false, "Also list handles without a name")
	cmd.Flags().BoolVar(&inspectSuspend, "suspend", false, "Pause the process while its handles are read")

	return cmd
}

func executeInspectFlow(ctx context.Context, pid uint32) error {
	deps, err := flows.DefaultDependencies(config.Get())
	if err != nil {
		return err
	}

	ui.SetStatus(fmt.Sprintf("Reading handles of pid %d", pid))
	inspection, err := flows.Inspect(deps).Run(ctx, pid, inspectSuspend)
	ui.ClearStatus()

	if err != nil {
		return err
	}

	fmt.Print(ui.RenderHandles(inspection, inspectAll))
	return nil
}
