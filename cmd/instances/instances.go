package instances

import (
	"context"
	"fmt"

	"github.com/safedep/unmutex/cmd/internal/pidarg"
	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/flows"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/spf13/cobra"
)

func NewInstancesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Manage the instances started by unmutex",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newPruneCommand())
	cmd.AddCommand(newForgetCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tracked instances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := executeList(cmd.Context()); err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}
}

func newPruneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Stop tracking instances that have exited",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := executePrune(cmd.Context()); err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}
}

func newForgetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <pid>",
		Short: "Stop tracking an instance, the process keeps running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := pidarg.Parse(args[0])
			if err != nil {
				ui.ErrorExit(err)
			}

			if err := executeForget(cmd.Context(), pid); err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}
}

func executeList(ctx context.Context) error {
	deps, err := flows.DefaultDependencies(config.Get())
	if err != nil {
		return err
	}

	instances, alive, err := flows.Instances(deps).List(ctx)
	if err != nil {
		return err
	}

	if len(instances) == 0 {
		fmt.Println("No tracked instances")
		return nil
	}

	fmt.Print(ui.RenderInstances(instances, alive))
	return nil
}

func executePrune(ctx context.Context) error {
	deps, err := flows.DefaultDependencies(config.Get())
	if err != nil {
		return err
	}

	dropped, err := flows.Instances(deps).Prune(ctx)
	if err != nil {
		return err
	}

	ui.Successf("Removed %d exited instance(s)", len(dropped))
	return nil
}

func executeForget(ctx context.Context, pid uint32) error {
	deps, err := flows.DefaultDependencies(config.Get())
	if err != nil {
		return err
	}

	if err := flows.Instances(deps).Forget(ctx, pid); err != nil {
		return err
	}

	ui.Successf("No longer tracking pid %d", pid)
	return nil
}
