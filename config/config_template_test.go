package config

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTemplateParsesAsYAML(t *testing.T) {
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(templateConfig), &raw), "templateConfig must be valid YAML")

	for _, key := range []string{"profile", "count", "settle_delay", "match_policy", "mutex_name"} {
		assert.Contains(t, raw, key)
	}
}

func TestTemplateMatchesDefaults(t *testing.T) {
	var parsed Config

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(templateConfig)))
	require.NoError(t, v.Unmarshal(&parsed))

	def := DefaultConfig().Config

	assert.Equal(t, def.Profile, parsed.Profile, "profile mismatch")
	assert.Equal(t, def.Count, parsed.Count, "count mismatch")
	assert.Equal(t, def.SettleDelay, parsed.SettleDelay, "settle_delay mismatch")
	assert.Equal(t, def.MatchPolicy, parsed.MatchPolicy, "match_policy mismatch")
	assert.Equal(t, def.MaxSizeAttempts, parsed.MaxSizeAttempts, "max_size_attempts mismatch")
	assert.Equal(t, def.InitialHandleBuffer, parsed.InitialHandleBuffer, "initial_handle_buffer mismatch")
	assert.Equal(t, def.SkipEventLogging, parsed.SkipEventLogging, "skip_event_logging mismatch")
	assert.Equal(t, def.EventLogRetentionDays, parsed.EventLogRetentionDays, "event_log_retention_days mismatch")
	assert.Empty(t, parsed.Arguments)

	assert.NoError(t, parsed.Validate())
}
