// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Command openapi-gen writes the OpenAPI document of the lyph HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sigil-dev/lyph/internal/engine"
	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/server"
	"github.com/sigil-dev/lyph/internal/store"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec builds a server over an empty in-memory graph and returns the
// OpenAPI document huma derives from the registered operations.
func generateSpec() ([]byte, error) {
	e := engine.New(graph.New(), store.NewMemory())
	defer func() { _ = e.Close() }()

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, e)
	if err != nil {
		return nil, lypherr.Errorf(lypherr.CodeCLISetupFailure, "creating server: %w", err)
	}

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}
