// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/server"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Long:  "Query a running server's health endpoint. With --reload, ask it to re-read the graph from storage first.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "", "server address (default: networking.listen)")
	cmd.Flags().Bool("reload", false, "reload the graph from the storage backend")

	return cmd
}

// serverAddress returns --address, falling back to the configured listen
// address.
func serverAddress(cmd *cobra.Command) string {
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		return addr
	}
	return viper.GetString("networking.listen")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr := serverAddress(cmd)
	out := cmd.OutOrStdout()
	client := newAPIClient(addr)

	if reload, _ := cmd.Flags().GetBool("reload"); reload {
		var stats graph.Stats
		if err := client.postJSON("/api/v1/reload", nil, &stats); err != nil {
			if lypherr.HasCode(err, lypherr.CodeCLIServerNotRunning) {
				_, _ = fmt.Fprintf(out, "lyph at %s is not running (connection refused)\n", addr)
				return nil
			}
			return err
		}
		_, _ = fmt.Fprintf(out, "Reloaded: %d lyphs, %d nodes\n", stats.Lyphs, stats.Nodes)
	}

	var body server.HealthBody
	if err := client.getJSON("/health", &body); err != nil {
		if lypherr.HasCode(err, lypherr.CodeCLIServerNotRunning) {
			_, _ = fmt.Fprintf(out, "lyph at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "lyph at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "lyph at %s: %s (backend %s)\n", addr, body.Status, body.Backend)
	_, _ = fmt.Fprintf(out, "  %d lyphs, %d nodes, %d lyphplates, %d layers, %d views\n",
		body.Graph.Lyphs, body.Graph.Nodes, body.Graph.Lyphplates, body.Graph.Layers, body.Graph.Views)
	if !body.Storage.Available {
		_, _ = fmt.Fprintf(out, "  storage failing: %s\n", body.Storage.LastError)
	}
	return nil
}
