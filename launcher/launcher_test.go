package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "app.exe")
	require.NoError(t, os.WriteFile(exe, []byte("MZ"), 0o755))

	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing file", exe, false},
		{"empty", "", true},
		{"missing", filepath.Join(dir, "missing.exe"), true},
		{"directory", dir, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidatePath(tc.path)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}

			assert.NoError(t, err)
			assert.True(t, filepath.IsAbs(got))
		})
	}
}

func TestNewDefaultsWorkDir(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "app.exe")
	require.NoError(t, os.WriteFile(exe, []byte("MZ"), 0o755))

	l, err := New(Config{Path: exe})
	require.NoError(t, err)

	assert.Equal(t, dir, l.config.WorkDir)
	assert.Equal(t, exe, l.Path())
}

func TestNewRejectsInvalidPath(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "nope.exe")})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLaunchNotExecutable(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "app.exe")
	require.NoError(t, os.WriteFile(exe, []byte("not a program"), 0o600))

	l, err := New(Config{Path: exe})
	require.NoError(t, err)

	_, err = l.Launch(context.Background())
	require.Error(t, err)

	var launchErr *LaunchError
	assert.True(t, errors.As(err, &launchErr))
	assert.Equal(t, exe, launchErr.Path)
}

func TestLaunchCancelled(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	l, err := New(Config{Path: exe})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.Launch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLaunchStartsProcess(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("Windows-only test")
	}

	exe := filepath.Join(os.Getenv("SystemRoot"), "System32", "cmd.exe")

	l, err := New(Config{Path: exe, Args: []string{"/c", "exit", "0"}})
	require.NoError(t, err)

	process, err := l.Launch(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, process.PID)
	assert.Equal(t, exe, process.Path)
}
