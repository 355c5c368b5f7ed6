// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	nets, err := parseTrustedProxies([]string{"10.0.0.0/8", "  ", "", "fd00::/8"})
	require.NoError(t, err)
	assert.Len(t, nets, 2)

	_, err = parseTrustedProxies([]string{"not-a-cidr"})
	require.Error(t, err)
	assert.True(t, lypherr.HasCode(err, lypherr.CodeServerConfigInvalid))
	assert.Contains(t, err.Error(), "invalid trusted proxy CIDR")

	_, err = parseTrustedProxies([]string{"", " "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one valid CIDR")
}

func TestIsTrustedProxy(t *testing.T) {
	nets, err := parseTrustedProxies([]string{"10.0.0.0/8", "192.168.0.0/16"})
	require.NoError(t, err)

	for ip, want := range map[string]bool{
		"10.1.2.3":    true,
		"192.168.1.1": true,
		"172.16.0.1":  false,
		"127.0.0.1":   false,
	} {
		assert.Equal(t, want, isTrustedProxy(net.ParseIP(ip), nets), ip)
	}
}

func TestTrustedProxyRealIP(t *testing.T) {
	nets, err := parseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "trusted peer uses leftmost forwarded address",
			remoteAddr: "10.0.0.5:4000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.9"},
			want:       "203.0.113.7:0",
		},
		{
			name:       "untrusted peer cannot spoof",
			remoteAddr: "198.51.100.2:4000",
			headers:    map[string]string{"X-Forwarded-For": "10.0.0.1"},
			want:       "198.51.100.2:4000",
		},
		{
			name:       "trusted peer without headers",
			remoteAddr: "10.0.0.5:4000",
			want:       "10.0.0.5:4000",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.5:4000",
			headers:    map[string]string{"X-Real-IP": " 203.0.113.8 "},
			want:       "203.0.113.8:0",
		},
		{
			name:       "garbage forwarded address keeps peer",
			remoteAddr: "10.0.0.5:4000",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "10.0.0.5:4000",
		},
		{
			name:       "ipv6 client",
			remoteAddr: "10.0.0.5:4000",
			headers:    map[string]string{"X-Forwarded-For": "2001:db8::1"},
			want:       "[2001:db8::1]:0",
		},
		{
			name:       "unparsable peer",
			remoteAddr: "garbage",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "garbage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := trustedProxyRealIP(nets, logger)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}
