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

type listLyphplatesInput struct {
	Prefix  string `query:"prefix" doc:"Autocomplete by name prefix"`
	OntTerm string `query:"ont_term"`
}

type refInput struct {
	Ref string `path:"ref" doc:"Lyphplate id, lyph id, or ontology term"`
}

type lyphplateBodyInput struct {
	Body engine.LyphplateRequest
}

type lyphplatePatchInput struct {
	ID   string `path:"id"`
	Body engine.LyphplatePatchRequest
}

type layerPositionInput struct {
	ID   string `path:"id"`
	Body engine.LayerPositionRequest
}

type builtFromInput struct {
	ID    string `path:"id"`
	Other string `path:"other"`
}

type builtFromBody struct {
	BuiltFrom bool `json:"built_from"`
}

type hierarchyBody struct {
	Levels [][]graph.HierarchyMember `json:"levels"`
}

type layerBodyInput struct {
	Body engine.LayerRequest
}

type layerPatchInput struct {
	ID   string `path:"id"`
	Body engine.LayerPatchRequest
}

type deleteTemplatesInput struct {
	Body engine.DeleteTemplatesRequest
}

type layerOp func(context.Context, string, engine.LayerPositionRequest) (graph.Lyphplate, error)

func (s *Server) registerTemplateRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-lyphplates",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphplates",
		Summary:     "List lyphplates, optionally by name prefix or ontology term",
		Tags:        []string{"lyphplates"},
	}, func(ctx context.Context, in *listLyphplatesInput) (*list[graph.Lyphplate], error) {
		g := s.engine.Graph()
		switch {
		case in.Prefix != "" && in.OntTerm != "":
			return nil, s.apiError(ctx, "list-lyphplates", lypherr.New(lypherr.CodeGraphInputInvalid,
				"at most one of prefix and ont_term may be given"))
		case in.Prefix != "":
			return listOf(g.LyphplatesByPrefix(in.Prefix)), nil
		case in.OntTerm != "":
			return listOf(g.LyphplatesByOntTerm(in.OntTerm)), nil
		default:
			return listOf(g.Lyphplates()), nil
		}
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-lyphplate",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphplates/{ref}",
		Summary:     "Get a lyphplate",
		Description: "An unknown lyph id or ontology term is promoted to a new basic lyphplate.",
		Tags:        []string{"lyphplates"},
	}, func(ctx context.Context, in *refInput) (*out[graph.Lyphplate], error) {
		t, err := s.engine.Lyphplate(ctx, in.Ref)
		if err != nil {
			return nil, s.apiError(ctx, "get-lyphplate", err)
		}
		return ok(t), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-lyphplate",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/lyphplates",
		Summary:       "Create a lyphplate",
		Tags:          []string{"lyphplates"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *lyphplateBodyInput) (*out[graph.Lyphplate], error) {
		t, err := s.engine.CreateLyphplate(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "create-lyphplate", err)
		}
		return ok(t), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "edit-lyphplate",
		Method:      http.MethodPatch,
		Path:        apiPrefix + "/lyphplates/{id}",
		Summary:     "Edit a lyphplate",
		Tags:        []string{"lyphplates"},
	}, func(ctx context.Context, in *lyphplatePatchInput) (*out[graph.Lyphplate], error) {
		t, err := s.engine.EditLyphplate(ctx, in.ID, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "edit-lyphplate", err)
		}
		return ok(t), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "clone-lyphplate",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/lyphplates/{id}/clone",
		Summary:       "Clone a lyphplate, sharing its layers",
		Tags:          []string{"lyphplates"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *idInput) (*out[graph.Lyphplate], error) {
		t, err := s.engine.CloneLyphplate(ctx, in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "clone-lyphplate", err)
		}
		return ok(t), nil
	})

	for _, r := range []struct {
		id, path, summary string
		op                layerOp
	}{
		{"move-layer", "/lyphplates/{id}/layers/move", "Move a layer to a 1-based position", s.engine.MoveLayer},
		{"insert-layer", "/lyphplates/{id}/layers/insert", "Insert a layer at a 1-based position", s.engine.InsertLayer},
		{"remove-layer", "/lyphplates/{id}/layers/remove", "Remove one occurrence of a layer", s.engine.RemoveLayerOccurrence},
	} {
		huma.Register(s.api, huma.Operation{
			OperationID: r.id,
			Method:      http.MethodPost,
			Path:        apiPrefix + r.path,
			Summary:     r.summary,
			Tags:        []string{"lyphplates", "layers"},
		}, func(ctx context.Context, in *layerPositionInput) (*out[graph.Lyphplate], error) {
			t, err := r.op(ctx, in.ID, in.Body)
			if err != nil {
				return nil, s.apiError(ctx, r.id, err)
			}
			return ok(t), nil
		})
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "built-from",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphplates/{id}/built-from/{other}",
		Summary:     "Whether a lyphplate is built, at any depth, from another",
		Tags:        []string{"lyphplates"},
	}, func(ctx context.Context, in *builtFromInput) (*out[builtFromBody], error) {
		b, err := s.engine.Graph().BuiltFrom(in.ID, in.Other)
		if err != nil {
			return nil, s.apiError(ctx, "built-from", err)
		}
		return ok(builtFromBody{BuiltFrom: b}), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "lyphplate-superclasses",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphplates/{id}/superclasses",
		Summary:     "Lyphplates this one specializes layer by layer",
		Tags:        []string{"lyphplates", "hierarchy"},
	}, func(ctx context.Context, in *idInput) (*list[string], error) {
		ids, err := s.engine.Graph().Superclasses(in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "lyphplate-superclasses", err)
		}
		return listOf(ids), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "lyphplate-subclasses",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/lyphplates/{id}/subclasses",
		Summary:     "Lyphplates that specialize this one",
		Tags:        []string{"lyphplates", "hierarchy"},
	}, func(ctx context.Context, in *idInput) (*list[string], error) {
		ids, err := s.engine.Graph().Subclasses(in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "lyphplate-subclasses", err)
		}
		return listOf(ids), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "lyphplate-hierarchy",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/hierarchy",
		Summary:     "Lyphplates arranged in superclass levels",
		Tags:        []string{"hierarchy"},
	}, func(_ context.Context, _ *struct{}) (*out[hierarchyBody], error) {
		levels := s.engine.Graph().Hierarchy()
		if levels == nil {
			levels = [][]graph.HierarchyMember{}
		}
		return ok(hierarchyBody{Levels: levels}), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-layers",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/layers",
		Summary:     "List layers",
		Tags:        []string{"layers"},
	}, func(_ context.Context, _ *struct{}) (*list[graph.Layer], error) {
		return listOf(s.engine.Graph().Layers()), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-layer",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/layers/{id}",
		Summary:     "Get a layer",
		Tags:        []string{"layers"},
	}, func(ctx context.Context, in *idInput) (*out[graph.Layer], error) {
		l, err := s.engine.Graph().Layer(in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "get-layer", err)
		}
		return ok(l), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-layer",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/layers",
		Summary:       "Create a layer",
		Tags:          []string{"layers"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *layerBodyInput) (*out[graph.Layer], error) {
		l, err := s.engine.CreateLayer(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "create-layer", err)
		}
		return ok(l), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "edit-layer",
		Method:      http.MethodPatch,
		Path:        apiPrefix + "/layers/{id}",
		Summary:     "Edit a layer in place or as a per-template copy",
		Tags:        []string{"layers"},
	}, func(ctx context.Context, in *layerPatchInput) (*out[graph.Layer], error) {
		l, err := s.engine.EditLayer(ctx, in.ID, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "edit-layer", err)
		}
		return ok(l), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "clone-layer",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/layers/{id}/clone",
		Summary:       "Clone a layer",
		Tags:          []string{"layers"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *idInput) (*out[graph.Layer], error) {
		l, err := s.engine.CloneLayer(ctx, in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "clone-layer", err)
		}
		return ok(l), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-templates",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/templates/delete",
		Summary:     "Delete lyphplates and layers, optionally with everything built only from them",
		Tags:        []string{"lyphplates", "layers"},
	}, func(ctx context.Context, in *deleteTemplatesInput) (*out[graph.TemplateDeletionResult], error) {
		res, err := s.engine.DeleteTemplates(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "delete-templates", err)
		}
		return ok(res), nil
	})
}
