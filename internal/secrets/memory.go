// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"sync"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// Memory is an in-process Store for tests.
type Memory struct {
	mu   sync.Mutex
	vals map[string]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{vals: map[string]string{}} }

func (m *Memory) Set(service, key, value string) error {
	if err := checkRef("set", service, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[service+"/"+key] = value
	return nil
}

func (m *Memory) Get(service, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[service+"/"+key]
	if !ok {
		return "", lypherr.Errorf(lypherr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	return v, nil
}

func (m *Memory) Delete(service, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vals[service+"/"+key]; !ok {
		return lypherr.Errorf(lypherr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	delete(m.vals, service+"/"+key)
	return nil
}
