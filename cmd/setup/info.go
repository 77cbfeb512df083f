package setup

import (
	"fmt"
	"strconv"

	"github.com/safedep/unmutex/config"
	"github.com/safedep/unmutex/internal/eventlog"
	"github.com/safedep/unmutex/internal/ui"
	"github.com/safedep/unmutex/internal/version"
	"github.com/spf13/cobra"
)

func NewInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show where unmutex keeps its files and the active settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := executeSetupInfo()
			if err != nil {
				ui.ErrorExit(fmt.Errorf("failed to execute setup info: %w", err))
			}

			return nil
		},
	}

	return cmd
}

func executeSetupInfo() error {
	fmt.Print(ui.GenerateBanner(version.Version, version.Commit))

	cfg := config.Get()

	fileEntries := map[string]string{
		"Config File":    cfg.ConfigFilePath(),
		"Instances File": cfg.SessionFilePath(),
		"Event Log":      eventLogStatus(cfg),
	}
	ui.PrintInfoSection("Files", fileEntries)

	settle := "profile default"
	if cfg.Config.SettleDelay > 0 {
		settle = cfg.Config.SettleDelay.String()
	}

	mutex := cfg.Config.MutexName
	if mutex == "" {
		mutex = "profile default"
	}

	settingEntries := map[string]string{
		"Profile":           cfg.Config.Profile,
		"Mutex":             mutex,
		"Count":             strconv.Itoa(cfg.Config.Count),
		"Settle Delay":      settle,
		"Max Size Attempts": strconv.Itoa(cfg.Config.MaxSizeAttempts),
	}
	ui.PrintInfoSection("Settings", settingEntries)

	return nil
}

func eventLogStatus(cfg *config.RuntimeConfig) string {
	if cfg.Config.SkipEventLogging {
		return "disabled"
	}

	if eventlog.IsInitialized() {
		return eventlog.LogPath()
	}

	return cfg.EventLogDir()
}
