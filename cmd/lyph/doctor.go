// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/sigil-dev/lyph/internal/config"
	"github.com/sigil-dev/lyph/internal/server"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, config file, storage backend, a running server, and free disk space.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", "", "server address to check (default: networking.listen)")

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr := serverAddress(cmd)
	cfg, cfgErr := loadConfig()

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(cfg, cfgErr) }},
		{"Backend", func() string { return checkBackend(cmd.Context(), cfg) }},
		{"Server", func() string { return checkServer(addr) }},
		{"Disk Space", func() string { return checkDiskSpace(resolveDataDir(cfg)) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

// resolveDataDir returns the configured data directory, or the viper value
// when the config did not load.
func resolveDataDir(cfg *config.Config) string {
	if cfg != nil {
		return cfg.DataDir
	}
	return viper.GetString("data_dir")
}

func checkBinary() string {
	return fmt.Sprintf("lyph %s (commit %s)", version, commit)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(cfg *config.Config, err error) string {
	if err != nil {
		return fmt.Sprintf("invalid: %s", err)
	}
	if cfg.File == "" {
		return "using defaults (no config file found)"
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if config.WarnInsecurePermissions(quiet, cfg.File) {
		return fmt.Sprintf("loaded from %s (readable by other users, chmod 600 recommended)", cfg.File)
	}
	return fmt.Sprintf("loaded from %s", cfg.File)
}

func checkBackend(ctx context.Context, cfg *config.Config) string {
	if cfg == nil {
		return "skipped (config invalid)"
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := openEngine(ctx, cfg, quiet, true)
	if err != nil {
		return fmt.Sprintf("%s: error: %s", cfg.Storage.Backend, err)
	}
	defer func() { _ = e.Close() }()

	st := e.Graph().Stats()
	return fmt.Sprintf("%s ok (%d lyphs, %d nodes, %d lyphplates)", e.Backend().Name(), st.Lyphs, st.Nodes, st.Lyphplates)
}

func checkServer(addr string) string {
	var body server.HealthBody
	if err := newAPIClient(addr).getJSON("/health", &body); err != nil {
		if lypherr.HasCode(err, lypherr.CodeCLIServerNotRunning) {
			return fmt.Sprintf("not running at %s (run 'lyph start')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", body.Status, addr)
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); path == "" || os.IsNotExist(err) {
		// The data directory is created on first write.
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	return formatBytes(stat.Bavail*uint64(stat.Bsize)) + " available"
}

func formatBytes(b uint64) string {
	const (
		gb = 1 << 30
		mb = 1 << 20
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
