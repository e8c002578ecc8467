package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppDir is the directory name used under the user's config directory.
const AppDir = "lisfy"

// ConfigDirectory returns the platform-appropriate config directory.
//   - Windows: %APPDATA%\lisfy
//   - Unix: ~/.config/lisfy
func ConfigDirectory() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppDir)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", AppDir)
	}
	return ""
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	dir := ConfigDirectory()
	if dir == "" {
		return "config.ini"
	}
	return filepath.Join(dir, "config.ini")
}

// EnsureConfigDir creates the config directory with owner-only permissions.
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDirectory(), 0700)
}
