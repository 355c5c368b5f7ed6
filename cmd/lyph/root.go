// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/sigil-dev/lyph/internal/config"
	"github.com/sigil-dev/lyph/internal/secrets"
	"github.com/sigil-dev/lyph/internal/server"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// secretStoreFactory creates the secrets.Store used for keyring references.
// Tests substitute an in-memory store.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyring()
}

// NewRootCmd creates the root lyph command with all subcommands registered.
// Each call starts from a clean global viper.
func NewRootCmd() *cobra.Command {
	viper.Reset()
	server.Version = version

	root := &cobra.Command{
		Use:           "lyph",
		Short:         "lyph: anatomical lyph graph server",
		Long:          "lyph stores and serves a graph of lyphs, nodes, lyphplates, layers and views, with location and path queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(),
		newStartCmd(),
		newStatusCmd(),
		newVersionCmd(),
		newDoctorCmd(),
		newImportCmd(),
		newExportCmd(),
		newPathsCmd(),
		newSecretCmd(),
	)

	return root
}

// initViper sets up the global viper with defaults, env bindings, flag
// bindings, and an optional config file, so precedence is
// flag > env > file > defaults.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return lypherr.Errorf(lypherr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted so viper does not try the bare name,
		// which collides with the ./lyph binary.
		v.SetConfigName("lyph")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/lyph")
		v.AddConfigPath("/etc/lyph")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return lypherr.Errorf(lypherr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return lypherr.Errorf(lypherr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return lypherr.Errorf(lypherr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return lypherr.Errorf(lypherr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return nil
}

// loadConfig decodes and validates the global viper state.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper(), secretStoreFactory(), nil)
}

// newLogger builds the process logger from config. --verbose forces debug.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.Logging.SlogLevel()
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
