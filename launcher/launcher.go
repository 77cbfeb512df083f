// Package launcher starts the target application.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/safedep/dry/log"
)

var ErrInvalidPath = errors.New("invalid executable path")

// LaunchError is returned when the executable could not be started.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Process is a started copy of the application. unmutex does not keep a handle
// to it, the copy keeps running after unmutex exits.
type Process struct {
	PID       uint32
	Path      string
	StartedAt time.Time
}

type Config struct {
	Path string
	Args []string

	// WorkDir defaults to the directory of Path. Many single instance
	// applications load their data relative to the working directory.
	WorkDir string
}

type ExecLauncher struct {
	config Config
}

// New validates the executable path and returns a launcher for it.
func New(config Config) (*ExecLauncher, error) {
	path, err := ValidatePath(config.Path)
	if err != nil {
		return nil, err
	}

	config.Path = path
	if config.WorkDir == "" {
		config.WorkDir = filepath.Dir(path)
	}

	return &ExecLauncher{config: config}, nil
}

// ValidatePath returns the absolute path of an existing regular file.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no executable configured", ErrInvalidPath)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidPath, path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidPath, abs, err)
	}

	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrInvalidPath, abs)
	}

	return abs, nil
}

func (l *ExecLauncher) Path() string {
	return l.config.Path
}

// Launch starts one copy and returns once the OS assigned it a pid.
func (l *ExecLauncher) Launch(ctx context.Context) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Not CommandContext: cancelling the batch must not kill copies that
	// are already running.
	cmd := exec.Command(l.config.Path, l.config.Args...)
	cmd.Dir = l.config.WorkDir

	log.Debugf("Starting %s %v in %s", l.config.Path, l.config.Args, l.config.WorkDir)

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Path: l.config.Path, Err: err}
	}

	process := &Process{
		PID:       uint32(cmd.Process.Pid),
		Path:      l.config.Path,
		StartedAt: time.Now(),
	}

	if err := cmd.Process.Release(); err != nil {
		log.Warnf("Failed to release process handle of pid %d: %v", process.PID, err)
	}

	return process, nil
}
