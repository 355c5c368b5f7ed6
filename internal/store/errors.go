// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"errors"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// Sentinel errors for store operations.
// These errors can be checked using errors.Is() for classification.
var (
	// ErrClosed is returned by operations on a backend after Close.
	ErrClosed = errors.New("store closed")

	// ErrInvalidInput indicates configuration or input the backend cannot use.
	ErrInvalidInput = errors.New("invalid input")
)

// ReadFailure wraps a failure to load state, keeping errors.Is on the cause.
func ReadFailure(err error, backend string) error {
	return lypherr.Wrap(err, lypherr.CodeStoreReadFailure, "loading graph", lypherr.Field("backend", backend))
}

// WriteFailure wraps a failure to save state.
func WriteFailure(err error, backend string) error {
	return lypherr.Wrap(err, lypherr.CodeStoreWriteFailure, "saving graph", lypherr.Field("backend", backend))
}

// InvalidConfig reports a configuration problem for backend.
func InvalidConfig(backend, msg string) error {
	return lypherr.Wrap(ErrInvalidInput, lypherr.CodeStoreInvalidInput, msg, lypherr.Field("backend", backend))
}
