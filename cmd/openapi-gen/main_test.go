// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpec(t *testing.T) {
	spec, err := generateSpec()
	require.NoError(t, err)

	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(spec, &doc))
	assert.Contains(t, doc.OpenAPI, "3.1")

	for path, method := range map[string]string{
		"/health":                              "get",
		"/api/v1/lyphs":                        "post",
		"/api/v1/lyphs/{id}/location":          "get",
		"/api/v1/nodes/{id}/location":          "put",
		"/api/v1/lyphplates/{id}/clone":        "post",
		"/api/v1/lyphplates/{id}/superclasses": "get",
		"/api/v1/hierarchy":                    "get",
		"/api/v1/templates/delete":             "post",
		"/api/v1/views/{id}/nodes":             "post",
		"/api/v1/paths":                        "post",
		"/api/v1/reload":                       "post",
	} {
		require.Contains(t, doc.Paths, path)
		assert.Contains(t, doc.Paths[path], method, path)
	}
}
