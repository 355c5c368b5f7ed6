// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"

	"github.com/sigil-dev/lyph/internal/fixture"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/store"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <fixture.yaml>...",
		Short: "Seed the graph from YAML fixtures",
		Long: "Apply one or more YAML fixtures to the stored graph. Each file is applied atomically: " +
			"if any entry fails, nothing from that file is kept.",
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
	cmd.Flags().Bool("dry-run", false, "only parse and validate the fixtures")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fixtures := make([]*fixture.Fixture, len(args))
	for i, path := range args {
		f, err := fixture.ParseFile(path)
		if err != nil {
			return err
		}
		fixtures[i] = f
	}
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		_, err := fmt.Fprintf(out, "%d fixture(s) valid\n", len(fixtures))
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx := cmd.Context()

	e, err := openEngine(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	for i, f := range fixtures {
		var res fixture.Result
		err := e.Apply(ctx, "import", func(g *graph.Graph) error {
			var err error
			res, err = f.Apply(g)
			return err
		})
		if err != nil {
			return lypherr.With(err, lypherr.Field("fixture", args[i]))
		}
		if _, err := fmt.Fprintf(out, "Imported %s: %d entities\n", args[i], res.Created); err != nil {
			return err
		}
	}

	if m := e.StoreHealth(); !m.Available {
		return lypherr.New(lypherr.CodeStoreWriteFailure, "import applied but saving failed: "+m.LastError)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the graph to another backend or print it as JSON",
		Long: "Load the graph from the configured backend and either save it into another backend " +
			"(--to) or write it to stdout as JSON (--json).",
		Args: cobra.NoArgs,
		RunE: runExport,
	}
	cmd.Flags().String("to", "", "destination backend name")
	cmd.Flags().String("to-data-dir", "", "data directory for the destination backend")
	cmd.Flags().Bool("json", false, "write the graph to stdout as JSON")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	to, _ := cmd.Flags().GetString("to")
	toDir, _ := cmd.Flags().GetString("to-data-dir")
	asJSON, _ := cmd.Flags().GetBool("json")
	if (to == "") == !asJSON {
		return lypherr.New(lypherr.CodeCLIInputInvalid, "exactly one of --to and --json is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx := cmd.Context()

	e, err := openEngine(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()
	snap := e.Graph().Snapshot()

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	dstCfg := *cfg.StoreConfig(logger)
	dstCfg.Backend = to
	if toDir != "" {
		dstCfg.DataDir = toDir
	}
	if dstCfg.Backend == e.Backend().Name() && dstCfg.DataDir == cfg.DataDir {
		return lypherr.New(lypherr.CodeCLIInputInvalid, "destination is the configured backend",
			lypherr.Field("backend", to))
	}

	dst, err := store.Open(ctx, &dstCfg)
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	if err := dst.Save(ctx, snap); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d lyphs, %d nodes, %d lyphplates, %d layers, %d views to %s\n",
		len(snap.Lyphs), len(snap.Nodes), len(snap.Lyphplates), len(snap.Layers), len(snap.Views), dst.Name())
	return err
}
