package setup

import (
	"fmt"
	"os"

	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/spf13/cobra"
)

var setupRemoveInstances = false

func NewRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove the unmutex config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runRemove(config.Get()); err != nil {
				ui.ErrorExit(err)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&setupRemoveInstances, "instances", false, "Also forget every tracked instance")
	return cmd
}

func runRemove(cfg *config.RuntimeConfig) error {
	files := []string{cfg.ConfigFilePath()}

	// The instances file is only removed when explicitly asked to.
	if setupRemoveInstances {
		files = append(files, cfg.SessionFilePath(), cfg.SessionFilePath()+".lock")
	}

	if !ui.Confirm(fmt.Sprintf("Remove %d file(s) from %s?", len(files), cfg.ConfigDir())) {
		return nil
	}

	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %q: %w", file, err)
		}

		ui.Successf("Removed %s", file)
	}

	return nil
}
