// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sigil-dev/lyph/internal/engine"
	"github.com/sigil-dev/lyph/internal/graph"
)

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "stats",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/stats",
		Summary:     "Live entity counts",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*out[graph.Stats], error) {
		return ok(s.engine.Graph().Stats()), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "snapshot",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/snapshot",
		Summary:     "Full graph state",
		Tags:        []string{"system"},
	}, func(_ context.Context, _ *struct{}) (*out[*graph.Snapshot], error) {
		return ok(s.engine.Graph().Snapshot()), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "reload",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/reload",
		Summary:     "Re-read the graph from the storage backend",
		Description: "On failure the current graph is kept and 503 is returned.",
		Tags:        []string{"system"},
	}, func(ctx context.Context, _ *struct{}) (*out[graph.Stats], error) {
		if err := s.engine.Reload(ctx, engine.TriggerAPI); err != nil {
			s.logger.WarnContext(ctx, "api reload failed", "error", err, "request_id", RequestID(ctx))
			return nil, huma.Error503ServiceUnavailable("reload failed: storage backend unavailable")
		}
		return ok(s.engine.Graph().Stats()), nil
	})
}
