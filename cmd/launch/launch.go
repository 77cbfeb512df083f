package launch

import (
	"context"

	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/flows"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/spf13/cobra"
)

func NewLaunchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Start copies of a single instance application",
		Long: "Start one or more copies of the profile's application. The copies already " +
			"running are paused while the guard mutex of each new copy is closed.",
		Example: "  unmutex launch -n 3\n" +
			"  unmutex launch --profile notes.yml --exe C:\\Apps\\notes.exe --title-format \"Notes ${INDEX}\"",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := executeLaunchFlow(cmd.Context())
			if err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}

	config.ApplyLaunchFlags(cmd)
	return cmd
}

func executeLaunchFlow(ctx context.Context) error {
	cfg := config.Get()

	deps, err := flows.DefaultDependencies(cfg)
	if err != nil {
		return err
	}

	data, err := flows.Launch(deps).Run(ctx, cfg.Config.Count)
	if data != nil {
		ui.Report(data)
	}

	return err
}
