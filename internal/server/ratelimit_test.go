// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limited(t *testing.T, cfg RateLimitConfig) http.Handler {
	t.Helper()
	require.NoError(t, cfg.Validate())
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return rateLimitMiddleware(cfg, logger, done)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, method, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/lyphs", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	h := limited(t, RateLimitConfig{})
	for range 50 {
		assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "192.0.2.1:1000").Code)
	}
}

func TestRateLimitMiddleware_LimitsWrites(t *testing.T) {
	h := limited(t, RateLimitConfig{RequestsPerSecond: 0.001, Burst: 3})

	for i := range 3 {
		assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "192.0.2.1:1000").Code, "request %d", i)
	}
	w := hit(h, http.MethodPatch, "192.0.2.1:2000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimitMiddleware_ReadsAreFree(t *testing.T) {
	h := limited(t, RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "192.0.2.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, http.MethodPost, "192.0.2.1:1000").Code)
	for range 10 {
		assert.Equal(t, http.StatusOK, hit(h, http.MethodGet, "192.0.2.1:1000").Code)
	}
}

func TestRateLimitMiddleware_PerIP(t *testing.T) {
	h := limited(t, RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})

	for i := range 5 {
		addr := fmt.Sprintf("192.0.2.%d:1000", i+1)
		assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, addr).Code, addr)
	}
}

func TestRateLimitMiddleware_Refills(t *testing.T) {
	h := limited(t, RateLimitConfig{RequestsPerSecond: 50, Burst: 1})

	assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "192.0.2.1:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, http.MethodPost, "192.0.2.1:1000").Code)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, http.StatusOK, hit(h, http.MethodPost, "192.0.2.1:1000").Code)
}

func TestRateLimitConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RateLimitConfig
		wantErr string
	}{
		{"disabled", RateLimitConfig{}, ""},
		{"valid", RateLimitConfig{RequestsPerSecond: 5, Burst: 10}, ""},
		{"negative rate", RateLimitConfig{RequestsPerSecond: -1}, "must not be negative"},
		{"rate without burst", RateLimitConfig{RequestsPerSecond: 5}, "burst must be positive"},
		{"negative visitors", RateLimitConfig{MaxVisitors: -1}, "max visitors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, 10000, tt.cfg.MaxVisitors)
				return
			}
			require.Error(t, err)
			assert.True(t, lypherr.HasCode(err, lypherr.CodeServerConfigInvalid))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestVisitors_Sweep(t *testing.T) {
	vs := &visitors{cfg: RateLimitConfig{RequestsPerSecond: 1, Burst: 1, MaxVisitors: 2}, byIP: map[string]*visitor{}}
	now := time.Now()

	vs.allow("stale", now.Add(-time.Hour))
	vs.allow("a", now.Add(-3*time.Second))
	vs.allow("b", now.Add(-2*time.Second))
	vs.allow("c", now.Add(-1*time.Second))

	assert.Equal(t, 1, vs.sweep(now))
	assert.NotContains(t, vs.byIP, "stale")
	assert.NotContains(t, vs.byIP, "a")
	assert.Contains(t, vs.byIP, "b")
	assert.Contains(t, vs.byIP, "c")
}
