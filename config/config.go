package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "embed"

	"github.com/safedep/unmutex/handles"
)

const (
	// Profile used when neither the config file nor a flag names one.
	DEFAULT_PROFILE = "growtopia"

	// Config file name.
	// Important: The config file path and the schema should be backward compatible. In case of breaking config
	// changes, we must introduce a new file name and a migration path.
	CONFIG_FILE_NAME = "config.yml"
)

//go:embed config.template.yml
var templateConfig string

// Config is the persisted configuration. Zero values for the executable, mutex
// name, settle delay, title format and match policy mean "take it from the profile".
type Config struct {
	// ExecutablePath overrides the executable of the profile.
	ExecutablePath string   `mapstructure:"executable_path"`
	Arguments      []string `mapstructure:"arguments"`

	// Profile is a built-in profile name or the path of a profile YAML file.
	Profile string `mapstructure:"profile"`

	// MutexName is the full object manager path of the single instance mutex.
	MutexName string `mapstructure:"mutex_name"`

	Count       int           `mapstructure:"count"`
	SettleDelay time.Duration `mapstructure:"settle_delay"`
	MatchPolicy string        `mapstructure:"match_policy"`

	// MaxSizeAttempts bounds every buffer size negotiation with the kernel.
	MaxSizeAttempts int `mapstructure:"max_size_attempts"`

	// InitialHandleBuffer is the first guess, in bytes, for the system handle table.
	InitialHandleBuffer int `mapstructure:"initial_handle_buffer"`

	// TitleFormat labels the main window of each launched copy, e.g. "Growtopia ${INDEX}".
	TitleFormat string `mapstructure:"title_format"`

	// SkipEventLogging allows for skipping event logging.
	SkipEventLogging bool `mapstructure:"skip_event_logging"`

	// EventLogRetentionDays is the number of days to retain event logs.
	EventLogRetentionDays int `mapstructure:"event_log_retention_days"`
}

// Validate rejects values the rest of the tool cannot work with.
func (c *Config) Validate() error {
	if c.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", c.Count)
	}

	if c.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative, got %s", c.SettleDelay)
	}

	if _, err := handles.ParseMatchPolicy(c.MatchPolicy); err != nil {
		return err
	}

	if c.MaxSizeAttempts < 1 {
		return fmt.Errorf("max_size_attempts must be at least 1, got %d", c.MaxSizeAttempts)
	}

	if c.InitialHandleBuffer < 0 {
		return fmt.Errorf("initial_handle_buffer must not be negative, got %d", c.InitialHandleBuffer)
	}

	if c.EventLogRetentionDays < 0 {
		return fmt.Errorf("event_log_retention_days must not be negative, got %d", c.EventLogRetentionDays)
	}

	return nil
}

// InterrogatorConfig maps the persisted limits onto the handle interrogator.
func (c *Config) InterrogatorConfig() handles.InterrogatorConfig {
	ic := handles.DefaultInterrogatorConfig()

	if c.InitialHandleBuffer > 0 {
		ic.Enumerator.InitialBufferSize = c.InitialHandleBuffer
	}

	if c.MaxSizeAttempts > 0 {
		ic.Enumerator.MaxAttempts = c.MaxSizeAttempts
	}

	return ic
}

// RuntimeConfig is the configuration used at runtime: the persisted Config plus
// paths computed from the environment.
type RuntimeConfig struct {
	Config Config

	configDir       string
	configFilePath  string
	sessionFilePath string
	eventLogDir     string
}

// ConfigDir returns the directory holding config.yml and instances.json.
func (r *RuntimeConfig) ConfigDir() string {
	return r.configDir
}

// ConfigFilePath returns the path to the config file.
func (r *RuntimeConfig) ConfigFilePath() string {
	return r.configFilePath
}

// SessionFilePath returns the path of the tracked instances file.
func (r *RuntimeConfig) SessionFilePath() string {
	return r.sessionFilePath
}

// EventLogDir returns the path to the event log directory.
func (r *RuntimeConfig) EventLogDir() string {
	return r.eventLogDir
}

// DefaultConfig is a fail safe contract for the runtime configuration.
func DefaultConfig() RuntimeConfig {
	return RuntimeConfig{
		Config: Config{
			Profile:               DEFAULT_PROFILE,
			Arguments:             []string{},
			Count:                 1,
			MaxSizeAttempts:       handles.DefaultMaxAttempts,
			InitialHandleBuffer:   handles.DefaultInitialBufferSize,
			SkipEventLogging:      false,
			EventLogRetentionDays: 7,
		},
	}
}

// globalConfig is initialized in init from defaults and the config file, and
// replaced by Load once command line flags are known.
var globalConfig *RuntimeConfig

func init() {
	if err := initConfig(); err != nil {
		panic(err)
	}
}

// initConfig should be idempotent and can be called multiple times.
// This is required for testing purposes.
func initConfig() error {
	cfg, err := load(nil)
	if err != nil {
		return err
	}

	globalConfig = cfg
	return nil
}

func newRuntimeConfig() (*RuntimeConfig, error) {
	defaultConfig := DefaultConfig()
	rc := &defaultConfig

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	configFilePath, err := ConfigFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config file path: %w", err)
	}

	sessionFilePath, err := SessionFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get session file path: %w", err)
	}

	eventLogDir, err := eventLogDir(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get event log directory: %w", err)
	}

	rc.configDir = configDir
	rc.configFilePath = configFilePath
	rc.sessionFilePath = sessionFilePath
	rc.eventLogDir = eventLogDir

	return rc, nil
}

// eventLogDir computes the path to the event log directory.
func eventLogDir(configDir string) (string, error) {
	switch runtime.GOOS {
	case "windows":
		// %LOCALAPPDATA%\safedep\unmutex\logs or %USERPROFILE%\safedep\unmutex\logs
		baseDir := os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			baseDir = os.Getenv("USERPROFILE")
			if baseDir == "" {
				return "", fmt.Errorf("could not determine Windows user directory for event log storage")
			}
		}

		return filepath.Join(baseDir, unmutexConfigPath, unmutexLogDir), nil
	default:
		return filepath.Join(configDir, unmutexLogDir), nil
	}
}

// Get returns the global configuration.
// This package guarantees that this function never returns nil.
func Get() *RuntimeConfig {
	return globalConfig
}

// WriteTemplateConfig writes the template configuration file to disk if it doesn't already exist.
// It reports whether a file was written.
func WriteTemplateConfig() (bool, error) {
	if _, err := createConfigDir(); err != nil {
		return false, err
	}

	configFilePath, err := ConfigFilePath()
	if err != nil {
		return false, fmt.Errorf("failed to get config file path: %w", err)
	}

	// Do not overwrite the config file if it already exists
	if _, err := os.Stat(configFilePath); err == nil {
		return false, nil
	}

	if err := os.WriteFile(configFilePath, []byte(templateConfig), 0o644); err != nil {
		return false, fmt.Errorf("failed to write template config: %w", err)
	}

	return true, nil
}
