package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinProfiles(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	assert.Contains(t, registry.ListProfiles(), "growtopia")

	growtopia, err := registry.GetProfile("growtopia")
	require.NoError(t, err)

	assert.Equal(t, `\Sessions\1\BaseNamedObjects\Growtopia`, growtopia.MutexName)
	assert.Equal(t, "all", growtopia.MatchPolicy)

	settle, err := growtopia.Settle()
	require.NoError(t, err)
	assert.Equal(t, 800*time.Millisecond, settle)
}

func TestGetProfileUnknown(t *testing.T) {
	registry, err := NewRegistry()
	require.NoError(t, err)

	_, err = registry.GetProfile("does-not-exist")
	assert.Error(t, err)
}

func TestLoadCustomProfile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
name: notes
executable: ${LOCALAPPDATA}\Notes\notes.exe
arguments: ["--profile", "${SESSION_ID}"]
mutex_name: \Sessions\${SESSION_ID}\BaseNamedObjects\NotesSingleInstance
settle_delay: 2s
`), 0o600))

	registry, err := NewRegistry()
	require.NoError(t, err)

	profile, err := registry.GetProfile(file)
	require.NoError(t, err)
	assert.Equal(t, "notes", profile.Name)

	cached, err := registry.GetProfile("notes")
	require.NoError(t, err)
	assert.Same(t, profile, cached)

	assert.NotContains(t, registry.ListProfiles(), "notes")
}

func TestLoadCustomProfileCannotShadowBuiltin(t *testing.T) {
	file := filepath.Join(t.TempDir(), "growtopia.yml")
	require.NoError(t, os.WriteFile(file, []byte(`
name: growtopia
mutex_name: \BaseNamedObjects\Other
`), 0o600))

	registry, err := NewRegistry()
	require.NoError(t, err)

	_, err = registry.LoadCustomProfile(file)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"valid", Profile{Name: "a", MutexName: `\BaseNamedObjects\A`, SettleDelay: "1s"}, false},
		{"missing name", Profile{MutexName: `\BaseNamedObjects\A`}, true},
		{"missing mutex", Profile{Name: "a"}, true},
		{"relative mutex", Profile{Name: "a", MutexName: "A"}, true},
		{"bad settle", Profile{Name: "a", MutexName: `\A`, SettleDelay: "soon"}, true},
		{"negative settle", Profile{Name: "a", MutexName: `\A`, SettleDelay: "-1s"}, true},
		{"bad policy", Profile{Name: "a", MutexName: `\A`, MatchPolicy: "some"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.profile.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	vars := Variables{
		"USERPROFILE":  `C:\Users\sam`,
		"LOCALAPPDATA": `C:\Users\sam\AppData\Local`,
		"SESSION_ID":   "2",
	}

	p := &Profile{
		Name:       "notes",
		Executable: `${LOCALAPPDATA}\Notes\notes.exe`,
		Arguments:  []string{"--session=${SESSION_ID}", "${UNKNOWN}"},
		MutexName:  `\Sessions\${SESSION_ID}\BaseNamedObjects\Notes`,
	}

	expanded := p.Expand(vars)

	assert.Equal(t, `C:\Users\sam\AppData\Local\Notes\notes.exe`, expanded.Executable)
	assert.Equal(t, []string{"--session=2", "${UNKNOWN}"}, expanded.Arguments)
	assert.Equal(t, `\Sessions\2\BaseNamedObjects\Notes`, expanded.MutexName)

	// The original is untouched.
	assert.Equal(t, `\Sessions\${SESSION_ID}\BaseNamedObjects\Notes`, p.MutexName)
}

func TestExpandLeavesLiteralSession(t *testing.T) {
	vars := Variables{"SESSION_ID": "3"}

	assert.Equal(t, `\Sessions\1\BaseNamedObjects\Growtopia`,
		vars.Expand(`\Sessions\1\BaseNamedObjects\Growtopia`))
}

func TestDefaultVariables(t *testing.T) {
	t.Setenv("LOCALAPPDATA", "/data/local")

	vars, err := DefaultVariables(5)
	require.NoError(t, err)

	assert.Equal(t, "5", vars["SESSION_ID"])
	assert.Equal(t, "/data/local", vars["LOCALAPPDATA"])
	assert.NotEmpty(t, vars["HOME"])

	withIndex := vars.With("INDEX", "2")
	assert.Equal(t, "2", withIndex["INDEX"])
	assert.NotContains(t, vars, "INDEX")
}
