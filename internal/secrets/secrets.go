// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package secrets keeps storage credentials out of lyph.yaml. Config values
// of the form keyring://service/key are replaced with the secret stored
// under that service and key.
package secrets

// DefaultService is the keyring service lyph writes its own secrets under.
const DefaultService = "lyph"

// Store holds secrets by service and key. Get and Delete report a missing
// secret with lypherr.CodeSecretNotFound.
type Store interface {
	Set(service, key, value string) error
	Get(service, key string) (string, error)
	Delete(service, key string) error
}
