// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sigil-dev/lyph/internal/graph"
	"github.com/sigil-dev/lyph/internal/secrets"
	"github.com/sigil-dev/lyph/internal/store"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level lyph configuration.
type Config struct {
	Networking NetworkingConfig `mapstructure:"networking"`
	DataDir    string           `mapstructure:"data_dir"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Graph      GraphConfig      `mapstructure:"graph"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Logging    LoggingConfig    `mapstructure:"logging"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// TrustedProxies are CIDR ranges whose X-Forwarded-For header is honored.
	TrustedProxies []string        `mapstructure:"trusted_proxies"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig throttles mutating API calls per client IP. Zero
// requests_per_second disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// StorageConfig selects the storage backend and holds per-backend settings.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Badger   BadgerConfig   `mapstructure:"badger"`
	S3       S3Config       `mapstructure:"s3"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type BadgerConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Prefix          string `mapstructure:"prefix"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type GraphConfig struct {
	Autocomplete     AutocompleteConfig `mapstructure:"autocomplete"`
	MaxPaths         int                `mapstructure:"max_paths"`
	OntologyPrefixes []string           `mapstructure:"ontology_prefixes"`
}

// AutocompleteConfig bounds prefix lookups: at most Presort matches are
// gathered, sorted, and cut to Postsort.
type AutocompleteConfig struct {
	Presort  int `mapstructure:"presort"`
	Postsort int `mapstructure:"postsort"`
}

// WatchConfig controls reloading after external edits. PollInterval applies
// to backends without a local directory.
type WatchConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Debounce     time.Duration `mapstructure:"debounce"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	validBackends = []string{"files", "sqlite", "postgres", "badger", "s3", "memory"}
	validLevels   = []string{"debug", "info", "warn", "error"}
	validFormats  = []string{"text", "json"}
)

// MaxPathsLimit is the largest graph.max_paths accepted.
const MaxPathsLimit = 4096

// SetDefaults registers every key with its default so that env overrides
// and Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:5052")
	v.SetDefault("networking.cors_origins", []string{})
	v.SetDefault("networking.trusted_proxies", []string{})
	v.SetDefault("networking.rate_limit.requests_per_second", 0)
	v.SetDefault("networking.rate_limit.burst", 20)
	v.SetDefault("data_dir", "./data")

	v.SetDefault("storage.backend", store.DefaultBackend)
	v.SetDefault("storage.sqlite.path", "lyph.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.badger.path", "lyph.badger")
	v.SetDefault("storage.badger.in_memory", false)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.prefix", "lyph")
	v.SetDefault("storage.s3.path_style", false)
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")

	v.SetDefault("graph.autocomplete.presort", 30)
	v.SetDefault("graph.autocomplete.postsort", 10)
	v.SetDefault("graph.max_paths", graph.DefaultMaxPaths)
	v.SetDefault("graph.ontology_prefixes", graph.DefaultOntologyPrefixes)

	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", 500*time.Millisecond)
	v.SetDefault("watch.poll_interval", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// SetupEnv maps LYPH_STORAGE_BACKEND style variables onto keys.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("LYPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from path (or defaults only when path is empty)
// with LYPH_ environment overrides, resolving keyring references through
// the OS keyring.
func Load(path string) (*Config, error) {
	return LoadWithSecrets(path, secrets.NewKeyring())
}

func LoadWithSecrets(path string, sec secrets.Store) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, lypherr.Errorf(lypherr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v, sec, nil)
}

// FromViper resolves keyring references in v, then decodes and validates
// it. Defaults must already be set on v.
func FromViper(v *viper.Viper, sec secrets.Store, logger *slog.Logger) (*Config, error) {
	if sec != nil {
		if failed := secrets.ResolveViper(v, sec, logger); len(failed) > 0 {
			return nil, lypherr.New(lypherr.CodeConfigValidateInvalidValue,
				"config: keyring references could not be resolved: "+strings.Join(failed, ", "),
				lypherr.Field("keys", failed))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, lypherr.Errorf(lypherr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, lypherr.Errorf(lypherr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns every
// problem found rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateGraph()...)
	errs = append(errs, c.validateWatch()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func invalid(format string, args ...any) error {
	return lypherr.Errorf(lypherr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, invalid("networking.listen must not be empty"))
	} else {
		_, portStr, err := net.SplitHostPort(c.Networking.Listen)
		if err != nil {
			errs = append(errs, invalid("networking.listen must be a valid host:port address, got %q: %w",
				c.Networking.Listen, err))
		} else if port, err := strconv.Atoi(portStr); err != nil {
			errs = append(errs, invalid("networking.listen port must be a number, got %q", portStr))
		} else if port < 1 || port > 65535 {
			errs = append(errs, invalid("networking.listen port must be between 1 and 65535, got %d", port))
		}
	}

	for i, origin := range c.Networking.CORSOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, invalid("networking.cors_origins[%d] must be \"*\" or an http(s) origin, got %q", i, origin))
		}
	}

	for i, cidr := range c.Networking.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, invalid("networking.trusted_proxies[%d] must be a CIDR range, got %q", i, cidr))
		}
	}

	rl := c.Networking.RateLimit
	if rl.RequestsPerSecond < 0 {
		errs = append(errs, invalid("networking.rate_limit.requests_per_second must not be negative, got %g", rl.RequestsPerSecond))
	}
	if rl.RequestsPerSecond > 0 && rl.Burst < 1 {
		errs = append(errs, invalid("networking.rate_limit.burst must be at least 1 when a rate is set, got %d", rl.Burst))
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error
	s := c.Storage

	if !slices.Contains(validBackends, s.Backend) {
		errs = append(errs, invalid("storage.backend must be one of [%s], got %q",
			strings.Join(validBackends, ", "), s.Backend))
		return errs
	}

	needsDir := s.Backend == "files" ||
		(s.Backend == "sqlite" && !filepath.IsAbs(s.SQLite.Path)) ||
		(s.Backend == "badger" && !s.Badger.InMemory && !filepath.IsAbs(s.Badger.Path))
	if needsDir && c.DataDir == "" {
		errs = append(errs, invalid("data_dir must not be empty for the %s backend", s.Backend))
	}

	switch s.Backend {
	case "postgres":
		if s.Postgres.DSN == "" {
			errs = append(errs, invalid("storage.postgres.dsn must not be empty"))
		}
	case "s3":
		if s.S3.Bucket == "" {
			errs = append(errs, invalid("storage.s3.bucket must not be empty"))
		}
		if (s.S3.AccessKeyID == "") != (s.S3.SecretAccessKey == "") {
			errs = append(errs, invalid("storage.s3.access_key_id and storage.s3.secret_access_key must be set together"))
		}
		if s.S3.Endpoint != "" {
			if u, err := url.Parse(s.S3.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, invalid("storage.s3.endpoint must be an absolute URL, got %q", s.S3.Endpoint))
			}
		}
	}

	return errs
}

func (c *Config) validateGraph() []error {
	var errs []error
	g := c.Graph

	if g.MaxPaths < 1 || g.MaxPaths > MaxPathsLimit {
		errs = append(errs, invalid("graph.max_paths must be between 1 and %d, got %d", MaxPathsLimit, g.MaxPaths))
	}
	if g.Autocomplete.Postsort < 1 {
		errs = append(errs, invalid("graph.autocomplete.postsort must be greater than 0, got %d", g.Autocomplete.Postsort))
	}
	if g.Autocomplete.Presort < g.Autocomplete.Postsort {
		errs = append(errs, invalid("graph.autocomplete.presort must be at least postsort (%d), got %d",
			g.Autocomplete.Postsort, g.Autocomplete.Presort))
	}
	for i, p := range g.OntologyPrefixes {
		if p == "" || strings.ContainsAny(p, ":_ \t") {
			errs = append(errs, invalid("graph.ontology_prefixes[%d] must be a bare prefix such as FMA, got %q", i, p))
		}
	}

	return errs
}

func (c *Config) validateWatch() []error {
	var errs []error

	if c.Watch.Enabled && c.Watch.Debounce <= 0 {
		errs = append(errs, invalid("watch.debounce must be greater than 0, got %s", c.Watch.Debounce))
	}
	if c.Watch.PollInterval < 0 {
		errs = append(errs, invalid("watch.poll_interval must not be negative, got %s", c.Watch.PollInterval))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	if !slices.Contains(validLevels, c.Logging.Level) {
		errs = append(errs, invalid("logging.level must be one of [%s], got %q",
			strings.Join(validLevels, ", "), c.Logging.Level))
	}
	if !slices.Contains(validFormats, c.Logging.Format) {
		errs = append(errs, invalid("logging.format must be one of [%s], got %q",
			strings.Join(validFormats, ", "), c.Logging.Format))
	}

	return errs
}

// StoreConfig converts the storage section for store.Open.
func (c *Config) StoreConfig(logger *slog.Logger) *store.StorageConfig {
	s := c.Storage
	return &store.StorageConfig{
		Backend:  s.Backend,
		DataDir:  c.DataDir,
		SQLite:   store.SQLiteConfig{Path: s.SQLite.Path},
		Postgres: store.PostgresConfig{DSN: s.Postgres.DSN},
		Badger:   store.BadgerConfig{Path: s.Badger.Path, InMemory: s.Badger.InMemory},
		S3: store.S3Config{
			Bucket:          s.S3.Bucket,
			Region:          s.S3.Region,
			Endpoint:        s.S3.Endpoint,
			Prefix:          s.S3.Prefix,
			PathStyle:       s.S3.PathStyle,
			AccessKeyID:     s.S3.AccessKeyID,
			SecretAccessKey: s.S3.SecretAccessKey,
		},
		Logger: logger,
	}
}

// GraphOptions returns the graph options implied by the graph section.
func (c *Config) GraphOptions(logger *slog.Logger) []graph.Option {
	return []graph.Option{
		graph.WithLogger(logger),
		graph.WithOntologyPrefixes(c.Graph.OntologyPrefixes...),
		graph.WithAutocomplete(c.Graph.Autocomplete.Presort, c.Graph.Autocomplete.Postsort),
	}
}

// SlogLevel parses logging.level; unknown values fall back to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
