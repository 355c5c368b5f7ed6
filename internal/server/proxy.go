// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// parseTrustedProxies parses CIDR strings. Blank entries are skipped; at
// least one range must remain.
func parseTrustedProxies(cidrs []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, lypherr.Errorf(lypherr.CodeServerConfigInvalid,
				"invalid trusted proxy CIDR %q: %w", cidr, err)
		}
		nets = append(nets, ipNet)
	}
	if len(nets) == 0 {
		return nil, lypherr.New(lypherr.CodeServerConfigInvalid,
			"trusted proxies must contain at least one valid CIDR range")
	}
	return nets, nil
}

func isTrustedProxy(ip net.IP, trusted []*net.IPNet) bool {
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// forwardedClient returns the client address a trusted proxy reported:
// the leftmost X-Forwarded-For entry, else X-Real-IP.
func forwardedClient(r *http.Request) (string, bool) {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		client, _, _ := strings.Cut(xff, ",")
		client = strings.TrimSpace(client)
		return client, net.ParseIP(client) != nil
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri, net.ParseIP(xri) != nil
	}
	return "", false
}

// trustedProxyRealIP rewrites r.RemoteAddr from forwarding headers, but
// only when the connecting peer is inside a trusted range. Otherwise the
// headers are ignored, so clients cannot spoof their address to dodge the
// rate limiter.
func trustedProxyRealIP(trusted []*net.IPNet, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				peer = r.RemoteAddr
			}
			ip := net.ParseIP(peer)
			if ip == nil || !isTrustedProxy(ip, trusted) {
				next.ServeHTTP(w, r)
				return
			}

			if client, ok := forwardedClient(r); ok {
				r.RemoteAddr = net.JoinHostPort(client, "0")
			} else if client != "" {
				logger.Warn("invalid forwarded client address, using peer", "forwarded", client, "peer", peer)
			}
			next.ServeHTTP(w, r)
		})
	}
}
