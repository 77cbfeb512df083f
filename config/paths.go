package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Every file unmutex keeps on disk lives below ConfigDir.

const (
	unmutexConfigName = "config"
	unmutexConfigType = "yml"
	unmutexConfigPath = "safedep/unmutex"

	unmutexSessionFile = "instances.json"
	unmutexLogDir      = "logs"

	UNMUTEX_CONFIG_DIR_ENV = "UNMUTEX_CONFIG_DIR"
)

// ConfigDir returns the base application config directory.
// If UNMUTEX_CONFIG_DIR is set, its value is used as the base before appending safedep/unmutex.
// Otherwise, the defaults are:
// - Windows: %AppData%\safedep\unmutex
// - Linux:   ~/.config/safedep/unmutex
// - macOS:   ~/Library/Application Support/safedep/unmutex
func ConfigDir() (string, error) {
	dir := os.Getenv(UNMUTEX_CONFIG_DIR_ENV)
	if dir != "" {
		return filepath.Join(dir, unmutexConfigPath), nil
	}

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to retrieve user config directory: %w", err)
	}

	return filepath.Join(userConfigDir, unmutexConfigPath), nil
}

func createConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	return dir, nil
}

// ConfigFilePath returns the path of config.yml without creating anything.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, fmt.Sprintf("%s.%s", unmutexConfigName, unmutexConfigType)), nil
}

// SessionFilePath returns the path of the tracked instances file.
func SessionFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, unmutexSessionFile), nil
}
