package config

import (
	"time"

	"github.com/spf13/cobra"
)

// ApplyCobraFlags registers the flags shared by every command that talks to a
// target application. They are read back by Load.
func ApplyCobraFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("profile", DEFAULT_PROFILE, "Built-in profile name or path of a profile YAML file")
	cmd.PersistentFlags().String("mutex", "", "Full object path of the single instance mutex (overrides the profile)")
	cmd.PersistentFlags().String("match-policy", "", "What to close when several handles match: first, all or exactly-one")
	cmd.PersistentFlags().Int("max-size-attempts", 8, "Maximum number of buffer size negotiations with the kernel")
	cmd.PersistentFlags().Bool("skip-event-logging", false, "Do not write the event log")
}

// ApplyLaunchFlags registers the flags of the launch command.
func ApplyLaunchFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("count", "n", 1, "Number of copies to start")
	cmd.Flags().String("exe", "", "Executable to start (overrides the profile)")
	cmd.Flags().StringSlice("args", nil, "Arguments passed to every copy")
	cmd.Flags().Duration("settle", time.Duration(0), "Time a new copy gets to create its mutex (0 uses the profile)")
	cmd.Flags().String("title-format", "", "Window title of each copy, e.g. \"App ${INDEX}\"")
	cmd.Flags().Int("initial-buffer", 0x10000, "First guess in bytes for the system handle table")
}
