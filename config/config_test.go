package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safedep/unmutex/config"
)

func newFlags(t *testing.T) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{Use: "test"}
	config.ApplyCobraFlags(cmd)
	config.ApplyLaunchFlags(cmd)

	// Merges the persistent flags into cmd.Flags() the way Execute does.
	require.NoError(t, cmd.ParseFlags(nil))

	return cmd
}

func writeConfigFile(t *testing.T, content string) {
	t.Helper()

	dir, err := config.ConfigDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	cfgFile, err := config.ConfigFilePath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))
}

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Setenv(config.UNMUTEX_CONFIG_DIR_ENV, t.TempDir())

	cfg, err := config.Load(newFlags(t).Flags())
	require.NoError(t, err)

	assert.Equal(t, "growtopia", cfg.Config.Profile)
	assert.Equal(t, 1, cfg.Config.Count)
	assert.Equal(t, time.Duration(0), cfg.Config.SettleDelay)
	assert.Equal(t, 8, cfg.Config.MaxSizeAttempts)
	assert.Equal(t, 0x10000, cfg.Config.InitialHandleBuffer)
	assert.Equal(t, 7, cfg.Config.EventLogRetentionDays)
	assert.Empty(t, cfg.Config.MutexName)
	assert.False(t, cfg.Config.SkipEventLogging)

	assert.Same(t, cfg, config.Get())
}

func TestLoad_NilFlags(t *testing.T) {
	t.Setenv(config.UNMUTEX_CONFIG_DIR_ENV, t.TempDir())

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Config.Count)
}

func TestLoad_FlagsOverrideDefaults(t *testing.T) {
	t.Setenv(config.UNMUTEX_CONFIG_DIR_ENV, t.TempDir())

	cmd := newFlags(t)
	fs := cmd.Flags()

	require.NoError(t, fs.Set("count", "3"))
	require.NoError(t, fs.Set("settle", "2s"))
	require.NoError(t, fs.Set("mutex", `\BaseNamedObjects\Other`))
	require.NoError(t, fs.Set("match-policy", "all"))
	require.NoError(t, fs.Set("args", "--windowed,--mute"))
	require.NoError(t, fs.Set("exe", `C:\apps\app.exe`))

	cfg, err := config.Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Config.Count)
	assert.Equal(t, 2*time.Second, cfg.Config.SettleDelay)
	assert.Equal(t, `\BaseNamedObjects\Other`, cfg.Config.MutexName)
	assert.Equal(t, "all", cfg.Config.MatchPolicy)
	assert.Equal(t, []string{"--windowed", "--mute"}, cfg.Config.Arguments)
	assert.Equal(t, `C:\apps\app.exe`, cfg.Config.ExecutablePath)
}

func TestLoad_ConfigFileOverridesDefaults(t *testing.T) {
	t.Setenv(config.UNMUTEX_CONFIG_DIR_ENV, t.TempDir())

	writeConfigFile(t, `
count: 4
settle_delay: 1500ms
match_policy: exactly-one
mutex_name: \Sessions\2\BaseNamedObjects\App
max_size_attempts: 5
skip_event_logging: true
`)

	cfg, err := config.Load(newFlags(t).Flags())
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Config.Count)
	assert.Equal(t, 1500*time.Millisecond, cfg.Config.SettleDelay)
	assert.Equal(t, "exactly-one", cfg.Config.MatchPolicy)
	assert.Equal(t, `\Sessions\2\BaseNamedObjects\App`, cfg.Config.MutexName)
	assert.Equal(t, 5, cfg.Config.MaxSizeAttempts)
	assert.True(t, cfg.Config.SkipEventLogging)

	// Keys missing from the file keep their defaults.
	assert.Equal(t, "growtopia", cfg.Config.Profile)
	assert.Equal(t, 0x10000, cfg.Config.InitialHandleBuffer)
}

func TestLoad_FlagsOverrideConfigFile(t *testing.T) {
	t.Setenv(config.UNMUTEX_CONFIG_DIR_ENV, t.TempDir())

	writeConfigFile(t, "count: 4\nprofile: other\n")

	fs := newFlags(t).Flags()
	require.NoError(t, fs.Set("count", "2"))

	cfg, err := config.Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Config.Count)
	assert.Equal(t, "other", cfg.Config.Profile)
}

func TestLoad_EnvironmentOverridesConfigFile(t *testing.T) {
	t.Setenv(config.UNMUTEX_CONFIG_DIR_ENV, t.TempDir())
	t.Setenv("UNMUTEX_COUNT", "6")

	writeConfigFile(t, "count: 4\n")

	cfg, err := config.Load(newFlags(t).Flags())
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Config.Count)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"zero count", "count: 0\n"},
		{"negative settle", "settle_delay: -1s\n"},
		{"unknown policy", "match_policy: most\n"},
		{"zero attempts", "max_size_attempts: 0\n"},
		{"negative retention", "event_log_retention_days: -1\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(config.UNMUTEX_CONFIG_DIR_ENV, t.TempDir())
			writeConfigFile(t, tc.content)

			_, err := config.Load(nil)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	t.Setenv(config.UNMUTEX_CONFIG_DIR_ENV, t.TempDir())
	writeConfigFile(t, "count: [\n")

	_, err := config.Load(nil)
	assert.Error(t, err)
}

func TestInterrogatorConfig(t *testing.T) {
	c := config.DefaultConfig().Config
	c.MaxSizeAttempts = 3
	c.InitialHandleBuffer = 4096

	ic := c.InterrogatorConfig()
	assert.Equal(t, 3, ic.Enumerator.MaxAttempts)
	assert.Equal(t, 4096, ic.Enumerator.InitialBufferSize)
}

func TestWriteTemplateConfig(t *testing.T) {
	t.Setenv(config.UNMUTEX_CONFIG_DIR_ENV, t.TempDir())

	written, err := config.WriteTemplateConfig()
	require.NoError(t, err)
	assert.True(t, written)

	cfgFile, err := config.ConfigFilePath()
	require.NoError(t, err)
	assert.FileExists(t, cfgFile)

	require.NoError(t, os.WriteFile(cfgFile, []byte("count: 9\n"), 0o644))

	written, err = config.WriteTemplateConfig()
	require.NoError(t, err)
	assert.False(t, written, "an existing config file must not be overwritten")

	data, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "count: 9\n", string(data))
}
