// Package config provides configuration management for the courier CLI.
package config

import (
	"os"
	"path/filepath"
)

// FileName is the name of the configuration file inside Dir.
const FileName = "config.yaml"

// Dir returns the courier config directory.
// Uses XDG_CONFIG_HOME/courier, defaulting to ~/.config/courier.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "courier"), nil
}

// File returns the full path of the configuration file.
func File() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}
