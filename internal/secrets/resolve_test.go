// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/sigil-dev/lyph/internal/secrets"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"valid", "keyring://lyph/postgres-dsn", "lyph", "postgres-dsn", false},
		{"slashes in key", "keyring://lyph/s3/secret", "lyph", "s3/secret", false},
		{"other scheme", "vault://secret/key", "", "", true},
		{"no key", "keyring://lyph", "", "", true},
		{"empty service", "keyring:///key", "", "", true},
		{"empty key", "keyring://lyph/", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, key, err := secrets.ParseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, lypherr.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, svc)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestURI_RoundTrip(t *testing.T) {
	uri := secrets.URI(secrets.DefaultService, "s3-access-key-id")
	assert.Equal(t, "keyring://lyph/s3-access-key-id", uri)
	assert.True(t, secrets.IsURI(uri))

	svc, key, err := secrets.ParseURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "lyph", svc)
	assert.Equal(t, "s3-access-key-id", key)
}

func TestResolve(t *testing.T) {
	s := secrets.NewMemory()
	require.NoError(t, s.Set("lyph", "dsn", "postgres://u:p@db/lyph"))

	got, err := secrets.Resolve(s, "keyring://lyph/dsn")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/lyph", got)

	got, err = secrets.Resolve(s, "plain-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", got)

	_, err = secrets.Resolve(s, "keyring://lyph/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyring://lyph/missing")
}

func TestResolveViper(t *testing.T) {
	s := secrets.NewMemory()
	require.NoError(t, s.Set("lyph", "s3-secret", "hunter2"))

	v := viper.New()
	v.Set("storage.s3.secret_access_key", "keyring://lyph/s3-secret")
	v.Set("storage.postgres.dsn", "keyring://lyph/absent")
	v.Set("storage.backend", "s3")

	var logs bytes.Buffer
	failed := secrets.ResolveViper(v, s, slog.New(slog.NewTextHandler(&logs, nil)))

	assert.Equal(t, "hunter2", v.GetString("storage.s3.secret_access_key"))
	assert.Equal(t, "keyring://lyph/absent", v.GetString("storage.postgres.dsn"))
	assert.Equal(t, "s3", v.GetString("storage.backend"))
	assert.Equal(t, []string{"storage.postgres.dsn"}, failed)
	assert.Contains(t, logs.String(), "keyring value not resolved")
}
