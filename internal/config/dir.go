// Package config loads docsmith settings: the per-project .docsmith.yaml, the
// environment, and the user configuration directory.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Dir returns the docsmith user configuration directory.
//
// Resolution:
//   - $DOCSMITH_CONFIG_HOME if set (explicit override)
//   - $XDG_CONFIG_HOME/docsmith if set (respects XDG on any platform)
//   - %AppData%/docsmith on Windows
//   - ~/.config/docsmith on macOS and Linux
func Dir() string {
	if dir := os.Getenv("DOCSMITH_CONFIG_HOME"); dir != "" {
		return dir
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docsmith")
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "docsmith")
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "docsmith")
}
