package version

import (
	"fmt"
	"os"
	"runtime"

	"github.com/safedep/unmutex/internal/version"
	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(os.Stdout, "Version: %s\n", version.Version)
			fmt.Fprintf(os.Stdout, "CommitSHA: %s\n", version.Commit)
			fmt.Fprintf(os.Stdout, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)

			return nil
		},
	}
}
