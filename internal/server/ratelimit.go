// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// RateLimitConfig configures per-IP limiting of mutating requests. Reads
// are never limited.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained write rate per IP. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	// MaxVisitors caps the number of IPs tracked. Default: 10000.
	MaxVisitors int
}

// Validate checks the config and applies defaults.
func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return lypherr.Errorf(lypherr.CodeServerConfigInvalid,
			"rate limit requests per second must not be negative (got %g)", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return lypherr.Errorf(lypherr.CodeServerConfigInvalid,
			"rate limit burst must be positive when rate is set (got burst=%d, rate=%g)",
			c.Burst, c.RequestsPerSecond)
	}
	if c.MaxVisitors < 0 {
		return lypherr.Errorf(lypherr.CodeServerConfigInvalid,
			"rate limit max visitors must not be negative (got %d)", c.MaxVisitors)
	}
	if c.MaxVisitors == 0 {
		c.MaxVisitors = 10000
	}
	return nil
}

const (
	visitorCleanupInterval = 5 * time.Minute
	visitorStaleAfter      = 10 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitors struct {
	mu   sync.Mutex
	cfg  RateLimitConfig
	byIP map[string]*visitor
}

func (vs *visitors) allow(ip string, now time.Time) bool {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	v, ok := vs.byIP[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(vs.cfg.RequestsPerSecond), vs.cfg.Burst)}
		vs.byIP[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops stale visitors, then the oldest ones beyond MaxVisitors. It
// returns how many were evicted for the cap.
func (vs *visitors) sweep(now time.Time) int {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	type entry struct {
		ip       string
		lastSeen time.Time
	}
	live := make([]entry, 0, len(vs.byIP))
	for ip, v := range vs.byIP {
		if now.Sub(v.lastSeen) > visitorStaleAfter {
			delete(vs.byIP, ip)
			continue
		}
		live = append(live, entry{ip, v.lastSeen})
	}
	if vs.cfg.MaxVisitors <= 0 || len(live) <= vs.cfg.MaxVisitors {
		return 0
	}
	slices.SortFunc(live, func(a, b entry) int { return a.lastSeen.Compare(b.lastSeen) })
	evict := len(live) - vs.cfg.MaxVisitors
	for _, e := range live[:evict] {
		delete(vs.byIP, e.ip)
	}
	return evict
}

func isMutation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// rateLimitMiddleware limits mutating requests per client IP. It is a
// pass-through when cfg.RequestsPerSecond is zero. Closing done stops the
// cleanup goroutine.
func rateLimitMiddleware(cfg RateLimitConfig, logger *slog.Logger, done <-chan struct{}) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	vs := &visitors{cfg: cfg, byIP: make(map[string]*visitor)}
	go func() {
		ticker := time.NewTicker(visitorCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				if n := vs.sweep(now); n > 0 {
					logger.Warn("rate limiter visitor cap enforced", "evicted", n, "max_visitors", cfg.MaxVisitors)
				}
			case <-done:
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			// Limit by IP, not by connection.
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !vs.allow(ip, time.Now()) {
				logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				if _, err := w.Write([]byte(`{"status":429,"title":"Too Many Requests","detail":"rate limit exceeded"}`)); err != nil {
					logger.Warn("failed to write rate limit response", "error", err)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
