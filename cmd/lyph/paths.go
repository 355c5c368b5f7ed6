// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sigil-dev/lyph/internal/engine"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/spf13/cobra"
)

var (
	pathHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	pathNodeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pathLyphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Find paths between node sets",
		Long: "Search the stored graph for shortest lyph paths from any --from node to any --to node. " +
			"Paths are listed shortest first.",
		Example: "  lyph paths --from 1 --to 4 --to 5 --avoid 3\n" +
			"  lyph paths --from 1 --to 4 --template 7 --accept-untyped --json",
		Args: cobra.NoArgs,
		RunE: runPaths,
	}

	cmd.Flags().StringSlice("from", nil, "start node ids")
	cmd.Flags().StringSlice("to", nil, "goal node ids")
	cmd.Flags().String("template", "", "only traverse lyphs built from this lyphplate")
	cmd.Flags().Bool("accept-untyped", false, "with --template, also traverse lyphs without a template")
	cmd.Flags().Int("max", 0, "maximum number of paths (default: graph.max_paths)")
	cmd.Flags().StringSlice("avoid", nil, "node ids the paths must not pass through")
	cmd.Flags().Bool("reverse", false, "also traverse lyphs against their direction")
	cmd.Flags().Bool("nif", false, "also traverse NIF lyphs")
	cmd.Flags().Bool("json", false, "print paths as JSON")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runPaths(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	req := engine.PathRequest{}
	req.From, _ = flags.GetStringSlice("from")
	req.To, _ = flags.GetStringSlice("to")
	req.Template, _ = flags.GetString("template")
	req.AcceptUntyped, _ = flags.GetBool("accept-untyped")
	req.MaxPaths, _ = flags.GetInt("max")
	req.Avoid, _ = flags.GetStringSlice("avoid")
	req.IncludeReverse, _ = flags.GetBool("reverse")
	req.IncludeNIF, _ = flags.GetBool("nif")

	e, err := engineFor(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	paths, err := e.FindPaths(req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := flags.GetBool("json"); asJSON {
		if paths == nil {
			paths = []graph.Path{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(paths)
	}

	if len(paths) == 0 {
		_, err := fmt.Fprintln(out, "No paths found.")
		return err
	}
	for i, p := range paths {
		if _, err := fmt.Fprintf(out, "%s %s\n",
			pathHeaderStyle.Render(fmt.Sprintf("Path %d", i+1)),
			formatPath(p)); err != nil {
			return err
		}
	}
	return nil
}

// formatPath renders a path as node -[lyph]-> node -[lyph]-> node.
func formatPath(p graph.Path) string {
	var b strings.Builder
	for i, n := range p.Nodes {
		if i > 0 {
			b.WriteString(pathLyphStyle.Render(" -[" + p.Lyphs[i-1] + "]-> "))
		}
		b.WriteString(pathNodeStyle.Render(n))
	}
	return b.String()
}

// engineFor is the read-only engine used by query commands.
func engineFor(cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openEngine(cmd.Context(), cfg, newLogger(cfg, cmd.ErrOrStderr()), true)
}
