package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/safedep/dry/log"
	"github.com/safedep/unmutex/cmd/inspect"
	"github.com/safedep/unmutex/cmd/instances"
	"github.com/safedep/unmutex/cmd/launch"
	"github.com/safedep/unmutex/cmd/process"
	"github.com/safedep/unmutex/cmd/profiles"
	"github.com/safedep/unmutex/cmd/release"
	"github.com/safedep/unmutex/cmd/setup"
	"github.com/safedep/unmutex/cmd/version"
	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/eventlog"
	"github.com/safedep/unmutex/internal/flows"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/spf13/cobra"
)

var (
	debug   bool
	verbose bool
	silent  bool
)

func main() {
	// Ctrl+C cancels the running batch, which still resumes every paused
	// instance before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := &cobra.Command{
		Use:              "unmutex",
		Short:            "Run several copies of a single instance Windows application",
		TraverseChildren: true,
		SilenceUsage:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				os.Setenv("APP_LOG_LEVEL", "debug")
			}

			log.InitZapLogger("unmutex", "")

			switch {
			case silent:
				ui.SetVerbosityLevel(ui.VerbosityLevelSilent)
			case verbose:
				ui.SetVerbosityLevel(ui.VerbosityLevelVerbose)
			}

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				ui.ErrorExit(err)
			}

			flows.InitEventLog(cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if err := eventlog.Close(); err != nil {
				log.Warnf("Failed to close event log: %v", err)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}

			return fmt.Errorf("unmutex: %s is not a valid command", args[0])
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show per instance details")
	cmd.PersistentFlags().BoolVarP(&silent, "silent", "s", false, "Only print errors and failed batches")
	cmd.MarkFlagsMutuallyExclusive("verbose", "silent")

	config.ApplyCobraFlags(cmd)

	cmd.AddCommand(launch.NewLaunchCommand())
	cmd.AddCommand(release.NewReleaseCommand())
	cmd.AddCommand(inspect.NewInspectCommand())
	cmd.AddCommand(process.NewSuspendCommand())
	cmd.AddCommand(process.NewResumeCommand())
	cmd.AddCommand(instances.NewInstancesCommand())
	cmd.AddCommand(profiles.NewProfilesCommand())
	cmd.AddCommand(setup.NewSetupCommand())
	cmd.AddCommand(version.NewVersionCommand())

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
