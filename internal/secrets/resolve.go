// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"log/slog"
	"strings"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/spf13/viper"
)

const scheme = "keyring://"

// IsURI reports whether value uses the keyring:// scheme.
func IsURI(value string) bool {
	return strings.HasPrefix(value, scheme)
}

// URI builds keyring://service/key.
func URI(service, key string) string {
	return scheme + service + "/" + key
}

// ParseURI splits keyring://service/key. The key may itself contain
// slashes.
func ParseURI(uri string) (service, key string, err error) {
	if !IsURI(uri) {
		return "", "", lypherr.Errorf(lypherr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, scheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", lypherr.Errorf(lypherr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns the secret a keyring URI points at. Other values come back
// unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsURI(value) {
		return value, nil
	}
	service, key, err := ParseURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", lypherr.Wrapf(err, lypherr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}
	return secret, nil
}

// ResolveViper replaces every keyring URI among v's string values with its
// secret. Keys that fail to resolve keep their URI, are logged, and are
// returned so callers can refuse to use them.
func ResolveViper(v *viper.Viper, store Store, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	var failed []string
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsURI(val) {
			continue
		}
		resolved, err := Resolve(store, val)
		if err != nil {
			logger.Warn("keyring value not resolved", "config_key", key, "error", err)
			failed = append(failed, key)
			continue
		}
		v.Set(key, resolved)
	}
	return failed
}
