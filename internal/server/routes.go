// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sigil-dev/lyph/internal/engine"
	"github.com/sigil-dev/lyph/internal/graph"
	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

const apiPrefix = "/api/v1"

// --- shared request/response shapes ---

type idInput struct {
	ID string `path:"id" doc:"Entity id"`
}

type out[T any] struct {
	Body T
}

type listBody[T any] struct {
	Items []T `json:"items"`
}

type list[T any] struct {
	Body listBody[T]
}

func listOf[T any](items []T) *list[T] {
	if items == nil {
		items = []T{}
	}
	return &list[T]{Body: listBody[T]{Items: items}}
}

func ok[T any](v T) *out[T] { return &out[T]{Body: v} }

// apiError maps a coded error to an HTTP problem response. Internal
// failures are logged and their detail withheld from the client.
func (s *Server) apiError(ctx context.Context, op string, err error) error {
	status := lypherr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "api operation failed",
			"operation", op, "error", err, "request_id", RequestID(ctx))
		return huma.Error500InternalServerError("internal error")
	}
	return huma.NewError(status, err.Error())
}

func (s *Server) registerRoutes() {
	s.registerLyphRoutes()
	s.registerNodeRoutes()
	s.registerTemplateRoutes()
	s.registerViewRoutes()
	s.registerSystemRoutes()
}

// --- lyphs ---

type listLyphsInput struct {
	Prefix     string `query:"prefix" doc:"Autocomplete by name prefix"`
	Species    string `query:"species"`
	FMA        string `query:"fma"`
	Annotation string `query:"annotation" doc:"Annotation predicate"`
}

type lyphBodyInput struct {
	Body engine.LyphRequest
}

type lyphPatchInput struct {
	ID   string `path:"id"`
	Body engine.LyphPatchRequest
}

type idsInput struct {
	Body engine.IDsRequest
}

type relativeLocationInput struct {
	ID      string   `path:"id"`
	Exclude []string `query:"exclude" doc:"Lyphs to skip while ascending"`
}

type locationBody struct {
	Location string `json:"location" doc:"Housing lyph id, empty when unhoused"`
}

type annotateInput struct {
	Body engine.AnnotateRequest
}

type unannotateInput struct {
	Body engine.UnannotateRequest
}

func (s *Server) registerLyphRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-lyphs",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphs",
		Summary:     "List lyphs, optionally filtered by one of prefix, species, fma or annotation",
		Tags:        []string{"lyphs"},
	}, s.handleListLyphs)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-lyph",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphs/{id}",
		Summary:     "Get a lyph",
		Tags:        []string{"lyphs"},
	}, func(ctx context.Context, in *idInput) (*out[graph.Lyph], error) {
		l, err := s.engine.Graph().Lyph(in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "get-lyph", err)
		}
		return ok(l), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-lyph",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/lyphs",
		Summary:       "Create a lyph",
		Tags:          []string{"lyphs"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *lyphBodyInput) (*out[graph.Lyph], error) {
		l, err := s.engine.CreateLyph(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "create-lyph", err)
		}
		return ok(l), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "edit-lyph",
		Method:      http.MethodPatch,
		Path:        apiPrefix + "/lyphs/{id}",
		Summary:     "Edit a lyph",
		Tags:        []string{"lyphs"},
	}, func(ctx context.Context, in *lyphPatchInput) (*out[graph.Lyph], error) {
		l, err := s.engine.EditLyph(ctx, in.ID, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "edit-lyph", err)
		}
		return ok(l), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-lyphs",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/lyphs/delete",
		Summary:     "Delete lyphs",
		Tags:        []string{"lyphs"},
	}, func(ctx context.Context, in *idsInput) (*out[graph.DeleteResult], error) {
		res, err := s.engine.DeleteLyphs(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "delete-lyphs", err)
		}
		return ok(res), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "lyph-location",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphs/{id}/location",
		Summary:     "Lyph that houses a lyph",
		Tags:        []string{"locations"},
	}, func(ctx context.Context, in *idInput) (*out[locationBody], error) {
		loc, err := s.engine.Graph().LyphLocation(in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "lyph-location", err)
		}
		return ok(locationBody{Location: loc}), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "relative-location",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphs/{id}/relative-location",
		Summary:     "Nearest housing lyph outside an excluded set",
		Tags:        []string{"locations"},
	}, func(ctx context.Context, in *relativeLocationInput) (*out[locationBody], error) {
		loc, err := s.engine.Graph().RelativeLocation(in.ID, in.Exclude)
		if err != nil {
			return nil, s.apiError(ctx, "relative-location", err)
		}
		return ok(locationBody{Location: loc}), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "nodes-in-lyph",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphs/{id}/nodes",
		Summary:     "Nodes housed in a lyph",
		Tags:        []string{"locations"},
	}, func(ctx context.Context, in *idInput) (*list[string], error) {
		ids, err := s.engine.Graph().NodesInLyph(in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "nodes-in-lyph", err)
		}
		return listOf(ids), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "annotate",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/annotations",
		Summary:     "Annotate lyphs",
		Tags:        []string{"annotations"},
	}, func(ctx context.Context, in *annotateInput) (*list[graph.Lyph], error) {
		ls, err := s.engine.Annotate(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "annotate", err)
		}
		return listOf(ls), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "remove-annotation",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/annotations/remove",
		Summary:     "Remove annotations by object, or all of them",
		Tags:        []string{"annotations"},
	}, func(ctx context.Context, in *unannotateInput) (*list[graph.Lyph], error) {
		ls, err := s.engine.RemoveAnnotation(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "remove-annotation", err)
		}
		return listOf(ls), nil
	})
}

func (s *Server) handleListLyphs(ctx context.Context, in *listLyphsInput) (*list[graph.Lyph], error) {
	set := 0
	for _, f := range []string{in.Prefix, in.Species, in.FMA, in.Annotation} {
		if f != "" {
			set++
		}
	}
	if set > 1 {
		return nil, s.apiError(ctx, "list-lyphs", lypherr.New(lypherr.CodeGraphInputInvalid,
			"at most one of prefix, species, fma and annotation may be given"))
	}

	g := s.engine.Graph()
	switch {
	case in.Prefix != "":
		return listOf(g.LyphsByPrefix(in.Prefix)), nil
	case in.Species != "":
		return listOf(g.LyphsBySpecies(in.Species)), nil
	case in.FMA != "":
		return listOf(g.LyphsByFMA(in.FMA)), nil
	case in.Annotation != "":
		return listOf(g.LyphsByAnnotation(in.Annotation)), nil
	default:
		return listOf(g.Lyphs()), nil
	}
}

// --- nodes ---

type nodeBodyInput struct {
	Body engine.NodeRequest
}

type nodeLocationInput struct {
	ID   string `path:"id"`
	Body engine.LocationRequest
}

type canFitInput struct {
	ID   string `path:"id"`
	Lyph string `path:"lyph"`
}

type canFitBody struct {
	Fits bool `json:"fits"`
}

func (s *Server) registerNodeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-nodes",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/nodes",
		Summary:     "List nodes",
		Tags:        []string{"nodes"},
	}, func(_ context.Context, _ *struct{}) (*list[graph.Node], error) {
		return listOf(s.engine.Graph().Nodes()), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-node",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/nodes/{id}",
		Summary:     "Get a node with its exits",
		Tags:        []string{"nodes"},
	}, func(ctx context.Context, in *idInput) (*out[graph.Node], error) {
		n, err := s.engine.Graph().Node(in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "get-node", err)
		}
		return ok(n), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-node",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/nodes",
		Summary:       "Create a node",
		Tags:          []string{"nodes"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *nodeBodyInput) (*out[graph.Node], error) {
		n, err := s.engine.CreateNode(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "create-node", err)
		}
		return ok(n), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-node-location",
		Method:      http.MethodPut,
		Path:        apiPrefix + "/nodes/{id}/location",
		Summary:     "House a node inside a lyph",
		Tags:        []string{"nodes", "locations"},
	}, func(ctx context.Context, in *nodeLocationInput) (*out[graph.Node], error) {
		n, err := s.engine.SetNodeLocation(ctx, in.ID, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "set-node-location", err)
		}
		return ok(n), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "can-node-fit",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/nodes/{id}/fits/{lyph}",
		Summary:     "Whether a node may be housed in a lyph without a location cycle",
		Tags:        []string{"nodes", "locations"},
	}, func(ctx context.Context, in *canFitInput) (*out[canFitBody], error) {
		fits, err := s.engine.Graph().CanNodeFitInLyph(in.ID, in.Lyph)
		if err != nil {
			return nil, s.apiError(ctx, "can-node-fit", err)
		}
		return ok(canFitBody{Fits: fits}), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-nodes",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/nodes/delete",
		Summary:     "Delete nodes and every lyph touching them",
		Tags:        []string{"nodes"},
	}, func(ctx context.Context, in *idsInput) (*out[graph.DeleteResult], error) {
		res, err := s.engine.DeleteNodes(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "delete-nodes", err)
		}
		return ok(res), nil
	})
}
