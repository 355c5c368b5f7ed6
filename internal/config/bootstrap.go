// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/spf13/viper"
)

//go:embed lyph.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/lyph/lyph.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", lypherr.Errorf(lypherr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "lyph", "lyph.yaml"), nil
}

// BootstrapConfig writes the default commented config to the default path
// if it does not already exist. It returns the path written, or "" if the
// file existed or could not be written; failures are logged and skipped.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	return bootstrapAt(cfgPath)
}

func bootstrapAt(cfgPath string) string {
	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}

// WriteFile writes settings (dotted keys) as a YAML config file with 0600
// permissions. An existing file is only replaced when overwrite is set.
func WriteFile(path string, settings map[string]any, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return lypherr.New(lypherr.CodeConfigAlreadyExists, "config file already exists",
			lypherr.Field("path", path))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return lypherr.Errorf(lypherr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range settings {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return lypherr.Errorf(lypherr.CodeConfigLoadReadFailure, "writing config %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return lypherr.Errorf(lypherr.CodeConfigLoadReadFailure, "securing config %s: %w", path, err)
	}
	return nil
}
