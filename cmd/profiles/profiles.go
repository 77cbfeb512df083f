package profiles

import (
	"fmt"

	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/flows"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/spf13/cobra"
)

func NewProfilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Show the built-in application profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List built-in profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := flows.DefaultDependencies(config.Get())
			if err != nil {
				ui.ErrorExit(err)
			}

			rows, err := deps.ProfileRows()
			if err != nil {
				ui.ErrorExit(err)
			}

			fmt.Print(ui.RenderProfiles(rows))
			return nil
		},
	})

	return cmd
}
