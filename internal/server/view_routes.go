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

type viewBodyInput struct {
	Body engine.ViewRequest
}

type viewNodesInput struct {
	ID   string `path:"id"`
	Body engine.ViewNodesRequest
}

type viewRemoveNodesInput struct {
	ID   string `path:"id"`
	Body engine.IDsRequest
}

type renameViewInput struct {
	ID   string `path:"id"`
	Body struct {
		Name string `json:"name" maxLength:"1024"`
	}
}

type deletedBody struct {
	Deleted []string `json:"deleted"`
}

type pathsInput struct {
	Body engine.PathRequest
}

func (s *Server) registerViewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-views",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/views",
		Summary:     "List views",
		Tags:        []string{"views"},
	}, func(_ context.Context, _ *struct{}) (*list[graph.View], error) {
		return listOf(s.engine.Graph().Views()), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-view",
		Method:      http.MethodGet,
		Path:        apiPrefix + "/views/{id}",
		Summary:     "Get a view",
		Tags:        []string{"views"},
	}, func(ctx context.Context, in *idInput) (*out[graph.View], error) {
		v, err := s.engine.Graph().View(in.ID)
		if err != nil {
			return nil, s.apiError(ctx, "get-view", err)
		}
		return ok(v), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-view",
		Method:        http.MethodPost,
		Path:          apiPrefix + "/views",
		Summary:       "Create a view, or return an identical existing one",
		Tags:          []string{"views"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *viewBodyInput) (*out[graph.View], error) {
		v, err := s.engine.CreateView(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "create-view", err)
		}
		return ok(v), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "rename-view",
		Method:      http.MethodPut,
		Path:        apiPrefix + "/views/{id}/name",
		Summary:     "Rename a view",
		Tags:        []string{"views"},
	}, func(ctx context.Context, in *renameViewInput) (*out[graph.View], error) {
		v, err := s.engine.RenameView(ctx, in.ID, in.Body.Name)
		if err != nil {
			return nil, s.apiError(ctx, "rename-view", err)
		}
		return ok(v), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "add-view-nodes",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/views/{id}/nodes",
		Summary:     "Add or reposition nodes in a view",
		Tags:        []string{"views"},
	}, func(ctx context.Context, in *viewNodesInput) (*out[graph.View], error) {
		v, err := s.engine.AddNodesToView(ctx, in.ID, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "add-view-nodes", err)
		}
		return ok(v), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "remove-view-nodes",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/views/{id}/nodes/remove",
		Summary:     "Remove nodes from a view",
		Tags:        []string{"views"},
	}, func(ctx context.Context, in *viewRemoveNodesInput) (*out[graph.View], error) {
		v, err := s.engine.RemoveNodesFromView(ctx, in.ID, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "remove-view-nodes", err)
		}
		return ok(v), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-views",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/views/delete",
		Summary:     "Delete views",
		Tags:        []string{"views"},
	}, func(ctx context.Context, in *idsInput) (*out[deletedBody], error) {
		ids, err := s.engine.DeleteViews(ctx, in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "delete-views", err)
		}
		return ok(deletedBody{Deleted: ids}), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "find-paths",
		Method:      http.MethodPost,
		Path:        apiPrefix + "/paths",
		Summary:     "Shortest lyph paths between two node sets",
		Tags:        []string{"paths"},
	}, func(ctx context.Context, in *pathsInput) (*list[graph.Path], error) {
		paths, err := s.engine.FindPaths(in.Body)
		if err != nil {
			return nil, s.apiError(ctx, "find-paths", err)
		}
		return listOf(paths), nil
	})
}
