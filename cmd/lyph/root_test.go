// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/secrets"
	"github.com/sigil-dev/lyph/internal/server"
	"github.com/sigil-dev/lyph/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliEnv is an isolated home and data directory with a config file for the
// files backend.
type cliEnv struct {
	t       *testing.T
	home    string
	dataDir string
	cfgPath string
	secrets *secrets.Memory
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	env := &cliEnv{
		t:       t,
		home:    home,
		dataDir: filepath.Join(home, "data"),
		cfgPath: filepath.Join(home, "lyph.yaml"),
		secrets: secrets.NewMemory(),
	}

	cfg := "data_dir: " + env.dataDir + "\n" +
		"storage:\n  backend: files\n" +
		"watch:\n  enabled: false\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(cfg), 0o600))

	old := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return env.secrets }
	t.Cleanup(func() { secretStoreFactory = old })

	return env
}

// run executes the CLI with the env's config file and returns stdout.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	return e.runIn("", append(args, "--config", e.cfgPath)...)
}

// runIn executes the CLI with stdin set to in and no extra flags.
func (e *cliEnv) runIn(in string, args ...string) (string, error) {
	e.t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader(in))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_Help(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.runIn("", "--help")
	require.NoError(t, err)

	for _, sub := range []string{"lyph", "init", "start", "status", "doctor", "import", "export", "paths", "secret"} {
		assert.Contains(t, out, sub)
	}
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.runIn("", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lyph dev")
	assert.Equal(t, "dev", server.Version)
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.runIn("", "--verbose", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--config")
	assert.Contains(t, out, "--data-dir")
	assert.Contains(t, out, "--verbose")
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.runIn("", "start", "--config", "/nonexistent/lyph.yaml")
	assert.Error(t, err)
}

func TestRootCommand_BootstrapsDefaultConfig(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.runIn("", "version")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(env.home, ".config", "lyph", "lyph.yaml"))
}

func healthServer(t *testing.T, reloads *int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			_ = json.NewEncoder(w).Encode(server.HealthBody{
				Status:  "degraded",
				Backend: "files",
				Storage: health.Metrics{Available: false, LastError: "disk full"},
				Graph:   graph.Stats{Lyphs: 4, Nodes: 5},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/reload":
			*reloads++
			_ = json.NewEncoder(w).Encode(graph.Stats{Lyphs: 4, Nodes: 5})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestStatusCommand_Running(t *testing.T) {
	env := newCLIEnv(t)
	var reloads int
	addr := healthServer(t, &reloads)

	out, err := env.run("status", "--address", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "degraded (backend files)")
	assert.Contains(t, out, "4 lyphs, 5 nodes")
	assert.Contains(t, out, "storage failing: disk full")
	assert.Zero(t, reloads)

	out, err = env.run("status", "--address", addr, "--reload")
	require.NoError(t, err)
	assert.Contains(t, out, "Reloaded: 4 lyphs, 5 nodes")
	assert.Equal(t, 1, reloads)
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestStatusCommand_NotRunning(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run("status", "--address", closedAddr(t))
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
}
