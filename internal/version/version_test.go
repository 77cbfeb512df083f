package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveKeepsLinkerValues(t *testing.T) {
	info := &debug.BuildInfo{Main: debug.Module{Version: "v0.0.1"}}

	version, commit := resolve("v1.2.0", "abc123", info)
	assert.Equal(t, "v1.2.0", version)
	assert.Equal(t, "abc123", commit)
}

func TestResolveFromBuildInfo(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.3.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs", Value: "git"},
			{Key: "vcs.revision", Value: "0123456789abcdef0123456789abcdef01234567"},
			{Key: "vcs.modified", Value: "false"},
		},
	}

	version, commit := resolve("", "", info)
	assert.Equal(t, "v1.3.0", version)
	assert.Equal(t, "0123456789ab", commit)
}

func TestResolveDevelBuild(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	version, commit := resolve("", "", info)
	assert.Equal(t, "dev", version)
	assert.Equal(t, "0123456789ab-dirty", commit)
}

func TestResolveWithoutBuildInfo(t *testing.T) {
	version, commit := resolve("", "", nil)
	assert.Equal(t, "dev", version)
	assert.Equal(t, "unknown", commit)
}
