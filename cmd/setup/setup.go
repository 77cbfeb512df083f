package setup

import (
	"fmt"

	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/safedep/unmutex/internal/version"
	"github.com/spf13/cobra"
)

func NewSetupCommand() *cobra.Command {
	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Manage the unmutex config file",
		Long:  "Create, show and remove the unmutex config file that holds the default profile and launch settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	setupCmd.AddCommand(NewInitCommand())
	setupCmd.AddCommand(NewInfoCommand())
	setupCmd.AddCommand(NewRemoveCommand())

	return setupCmd
}

func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented config file unless one exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(ui.GenerateBanner(version.Version, version.Commit))

			written, err := config.WriteTemplateConfig()
			if err != nil {
				ui.ErrorExit(fmt.Errorf("failed to write template config: %w", err))
			}

			ui.PrintSetupInitInfo(config.Get().ConfigFilePath(), written)
			return nil
		},
	}
}
