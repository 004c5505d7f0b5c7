package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDirName = "cc-jupyter"

// ConfigDirectory returns the directory holding the config file.
//
// Locations:
//   - Windows: %USERPROFILE%\.config\cc-jupyter
//   - Unix: ~/.config/cc-jupyter
func ConfigDirectory() (string, error) {
	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		return filepath.Join(userProfile, ".config", appDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", appDirName), nil
}

// DefaultConfigPath returns the default path of the config file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config"), nil
}

// EnsureConfigDirectory creates the parent directory of path with owner-only
// permissions.
func EnsureConfigDirectory(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// DownloadDir returns the configured download directory, or the
// current directory when none is set.
func (cfg *Config) DownloadDir() string {
	if strings.TrimSpace(cfg.DownloadDirectory) == "" {
		return "."
	}
	return ExpandHome(cfg.DownloadDirectory)
}
