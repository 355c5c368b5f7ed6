// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package secrets

import (
	"errors"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/zalando/go-keyring"
)

// Keyring stores secrets in the OS keyring: Keychain on macOS,
// secret-service over D-Bus on Linux, Credential Manager on Windows.
type Keyring struct{}

var _ Store = Keyring{}

func NewKeyring() Keyring { return Keyring{} }

func checkRef(op, service, key string) error {
	if service == "" {
		return lypherr.Errorf(lypherr.CodeSecretInvalidInput, "secret %s: service must not be empty", op)
	}
	if key == "" {
		return lypherr.Errorf(lypherr.CodeSecretInvalidInput, "secret %s: key must not be empty", op)
	}
	return nil
}

func (Keyring) Set(service, key, value string) error {
	if err := checkRef("set", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return lypherr.Wrapf(err, lypherr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (Keyring) Get(service, key string) (string, error) {
	if err := checkRef("get", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", lypherr.Errorf(lypherr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", lypherr.Wrapf(err, lypherr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (Keyring) Delete(service, key string) error {
	if err := checkRef("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return lypherr.Errorf(lypherr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return lypherr.Wrapf(err, lypherr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return nil
}
