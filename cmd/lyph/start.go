// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigil-dev/lyph/internal/config"
	"github.com/sigil-dev/lyph/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the lyph API server",
		Long:  "Load configuration, open the storage backend, load the graph, and serve the HTTP API until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	cmd.Flags().Bool("watch", false, "reload the graph when the backend changes")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("watch.enabled", cmd.Flags().Lookup("watch"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	config.WarnInsecurePermissions(logger, cfg.File)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cmd, cfg, logger)
}

// serve runs the API server, and the watcher when enabled, until ctx ends
// or one of them fails.
func serve(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	e, err := openEngine(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Warn("closing storage backend", "error", err)
		}
	}()

	srv, err := server.New(serverConfig(cfg, logger), e)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Starting lyph on %s (backend %s)\n",
		cfg.Networking.Listen, e.Backend().Name()); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	if cfg.Watch.Enabled {
		w := newWatcher(e, cfg, logger)
		g.Go(func() error { return w.Run(gctx) })
	}
	return g.Wait()
}
