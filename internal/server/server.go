// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package server exposes the lyph engine over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sigil-dev/lyph/internal/engine"
	"github.com/sigil-dev/lyph/internal/graph"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
	"github.com/sigil-dev/lyph/pkg/health"
)

// Version is reported in the OpenAPI document. The CLI overrides it at link time.
var Version = "0.1.0"

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr      string
	CORSOrigins     []string
	TrustedProxies  []string
	RateLimit       RateLimitConfig
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Server wraps a chi router with the huma API and an HTTP server.
type Server struct {
	router chi.Router
	api    huma.API
	cfg    Config
	engine *engine.Engine
	logger *slog.Logger
	done   chan struct{}
}

// New builds the router, registers every API operation against e, and
// returns a server ready to Start.
func New(cfg Config, e *engine.Engine) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, lypherr.New(lypherr.CodeServerConfigInvalid, "listen address is required")
	}
	if e == nil {
		return nil, lypherr.New(lypherr.CodeServerConfigInvalid, "engine is required")
	}
	if err := cfg.RateLimit.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if len(cfg.TrustedProxies) > 0 {
		trusted, err := parseTrustedProxies(cfg.TrustedProxies)
		if err != nil {
			return nil, err
		}
		r.Use(trustedProxyRealIP(trusted, cfg.Logger))
	}
	r.Use(requestID)
	r.Use(requestLogger(cfg.Logger))
	r.Use(corsMiddleware(cfg.CORSOrigins))

	done := make(chan struct{})
	r.Use(rateLimitMiddleware(cfg.RateLimit, cfg.Logger, done))

	r.Handle("/metrics", promhttp.Handler())

	humaConfig := huma.DefaultConfig("lyph API", Version)
	humaConfig.Info.Description = "Anatomical lyph graph: lyphs, nodes, templates, views and path search"
	api := humachi.New(r, humaConfig)

	s := &Server{
		router: r,
		api:    api,
		cfg:    cfg,
		engine: e,
		logger: cfg.Logger,
		done:   done,
	}

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)

	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API for registering additional operations.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops the rate limiter's cleanup goroutine. It is safe to call more
// than once.
func (s *Server) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

// Start runs the HTTP server and blocks until the context is cancelled,
// then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return lypherr.Wrap(err, lypherr.CodeServerStartFailure, "listening",
			lypherr.Field("addr", s.cfg.ListenAddr))
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer func() { _ = s.Close() }()

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("api listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return lypherr.Wrap(err, lypherr.CodeServerStartFailure, "serving")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return lypherr.Wrap(err, lypherr.CodeServerShutdownFailure, "shutting down")
	}
	if err := <-errCh; err != nil {
		return lypherr.Wrap(err, lypherr.CodeServerStartFailure, "serving")
	}
	return nil
}

// HealthBody is the JSON body of the health endpoint response. Status is
// "degraded" while the storage backend is failing; the API keeps serving
// the in-memory graph.
type HealthBody struct {
	Status  string         `json:"status" example:"ok" doc:"ok or degraded"`
	Backend string         `json:"backend" doc:"Storage backend name"`
	Storage health.Metrics `json:"storage"`
	Graph   graph.Stats    `json:"graph"`
}

type HealthResponse struct {
	Body HealthBody
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*HealthResponse, error) {
	m := s.engine.StoreHealth()
	status := "ok"
	if !m.Available {
		status = "degraded"
	}
	return &HealthResponse{Body: HealthBody{
		Status:  status,
		Backend: s.engine.Backend().Name(),
		Storage: m,
		Graph:   s.engine.Graph().Stats(),
	}}, nil
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
