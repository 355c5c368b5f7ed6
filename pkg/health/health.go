// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package health tracks whether a dependency (the storage backend) is
// currently working, for /health and `lyph doctor`.
package health

import (
	"sync"
	"time"
)

// Metrics is a point-in-time view of a Tracker, safe to serialize.
type Metrics struct {
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	Available     bool       `json:"available"`
}

// Tracker is healthy until RecordFailure and healthy again after the next
// RecordSuccess.
type Tracker struct {
	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	succeededAt  time.Time
	lastErr      string
	failureCount int64
	now          func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{healthy: true, now: time.Now}
}

func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	t.healthy = true
	t.succeededAt = t.now()
	t.mu.Unlock()
}

// RecordFailure marks the dependency unhealthy and counts the failure. A nil
// err is recorded without a message.
func (t *Tracker) RecordFailure(err error) {
	t.mu.Lock()
	t.healthy = false
	t.failedAt = t.now()
	t.failureCount++
	t.lastErr = ""
	if err != nil {
		t.lastErr = err.Error()
	}
	t.mu.Unlock()
}

func (t *Tracker) Healthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.healthy
}

// SetNowFunc overrides the time source (for testing).
func (t *Tracker) SetNowFunc(fn func() time.Time) {
	t.mu.Lock()
	t.now = fn
	t.mu.Unlock()
}

func (t *Tracker) Metrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m := Metrics{FailureCount: t.failureCount, Available: t.healthy}
	if t.failureCount > 0 {
		at := t.failedAt
		m.LastFailureAt = &at
		m.LastError = t.lastErr
	}
	if !t.succeededAt.IsZero() {
		at := t.succeededAt
		m.LastSuccessAt = &at
	}
	return m
}
