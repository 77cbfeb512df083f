package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flag names to config keys. Only flags present in
// the flag set passed to Load are bound.
var flagKeys = map[string]string{
	"exe":                "executable_path",
	"args":               "arguments",
	"profile":            "profile",
	"mutex":              "mutex_name",
	"count":              "count",
	"settle":             "settle_delay",
	"match-policy":       "match_policy",
	"max-size-attempts":  "max_size_attempts",
	"initial-buffer":     "initial_handle_buffer",
	"title-format":       "title_format",
	"skip-event-logging": "skip_event_logging",
}

// Load builds the runtime configuration with the precedence
// flags > environment > config file > defaults, validates it and makes it the
// global configuration.
func Load(flags *pflag.FlagSet) (*RuntimeConfig, error) {
	cfg, err := load(flags)
	if err != nil {
		return nil, err
	}

	if err := cfg.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	globalConfig = cfg
	return cfg, nil
}

func load(flags *pflag.FlagSet) (*RuntimeConfig, error) {
	cfg, err := newRuntimeConfig()
	if err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigType("yaml")
	v.SetEnvPrefix("UNMUTEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	setViperDefaults(v, &cfg.Config)

	// A missing config file is not an error, the defaults apply.
	if _, err := os.Stat(cfg.configFilePath); err == nil {
		v.SetConfigFile(cfg.configFilePath)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfg.configFilePath, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}

			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Config = loaded
	return cfg, nil
}

func setViperDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("executable_path", c.ExecutablePath)
	v.SetDefault("arguments", c.Arguments)
	v.SetDefault("profile", c.Profile)
	v.SetDefault("mutex_name", c.MutexName)
	v.SetDefault("count", c.Count)
	v.SetDefault("settle_delay", c.SettleDelay)
	v.SetDefault("match_policy", c.MatchPolicy)
	v.SetDefault("max_size_attempts", c.MaxSizeAttempts)
	v.SetDefault("initial_handle_buffer", c.InitialHandleBuffer)
	v.SetDefault("title_format", c.TitleFormat)
	v.SetDefault("skip_event_logging", c.SkipEventLogging)
	v.SetDefault("event_log_retention_days", c.EventLogRetentionDays)
}
