// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/sigil-dev/lyph/internal/codec"
	"github.com/sigil-dev/lyph/internal/graph"
)

func init() {
	RegisterBackend("memory", func(context.Context, *StorageConfig) (Backend, error) {
		return NewMemory(), nil
	})
}

// Memory keeps the last saved snapshot in process memory. Saved snapshots
// are copied, so later graph mutations never leak into the store.
type Memory struct {
	mu     sync.Mutex
	data   []byte
	saves  int
	closed bool
}

var _ Backend = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Load(context.Context) (*graph.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ReadFailure(ErrClosed, m.Name())
	}
	s := &graph.Snapshot{}
	if m.data == nil {
		return s, nil
	}
	if err := json.Unmarshal(m.data, s); err != nil {
		return nil, ReadFailure(err, m.Name())
	}
	return s, nil
}

func (m *Memory) Save(_ context.Context, s *graph.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return WriteFailure(ErrClosed, m.Name())
	}
	data, err := json.Marshal(s)
	if err != nil {
		return WriteFailure(err, m.Name())
	}
	m.data = data
	m.saves++
	return nil
}

// Saves counts successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Digest fingerprints a set of graph files independent of map order.
func Digest(files codec.Files) string {
	h := sha256.New()
	for _, name := range files.Names() {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(files[name])
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
