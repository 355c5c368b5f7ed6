// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "log/slog"

// StorageConfig controls which backend Open uses and how it is reached.
type StorageConfig struct {
	Backend  string // "files" when empty.
	DataDir  string // Base directory for file-based backends.
	SQLite   SQLiteConfig
	Postgres PostgresConfig
	Badger   BadgerConfig
	S3       S3Config

	Logger *slog.Logger
}

type SQLiteConfig struct {
	Path string // Relative paths resolve against DataDir.
}

type PostgresConfig struct {
	DSN string
}

type BadgerConfig struct {
	Path     string
	InMemory bool
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional; set for MinIO and other S3-compatible stores.
	Prefix          string // Key prefix the graph files are stored under.
	PathStyle       bool
	AccessKeyID     string // Optional; falls back to the default credential chain.
	SecretAccessKey string
}

// Log returns the configured logger or slog.Default.
func (c *StorageConfig) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
