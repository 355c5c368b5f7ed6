// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	lypherr "github.com/sigil-dev/lyph/pkg/errors"
)

// defaultHTTPClient is used by commands that talk to a running server.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// apiClient provides HTTP access to a running lyph server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(addr string) *apiClient {
	return &apiClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

func (c *apiClient) getJSON(path string, dest any) error {
	return c.do(http.MethodGet, path, nil, dest)
}

func (c *apiClient) postJSON(path string, body, dest any) error {
	return c.do(http.MethodPost, path, body, dest)
}

// do sends one request and decodes a 2xx JSON response into dest. A refused
// connection is reported with CodeCLIServerNotRunning.
func (c *apiClient) do(method, path string, body, dest any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return lypherr.Errorf(lypherr.CodeCLIInputInvalid, "encoding request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, rd)
	if err != nil {
		return lypherr.Errorf(lypherr.CodeCLIInputInvalid, "building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isDialError(err) {
			return lypherr.New(lypherr.CodeCLIServerNotRunning,
				"lyph server is not running (connection refused)", lypherr.Field("url", c.baseURL))
		}
		return lypherr.Errorf(lypherr.CodeServerRequestInvalid, "request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return lypherr.New(lypherr.CodeServerRequestInvalid,
			fmt.Sprintf("server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
			lypherr.Field("status", resp.StatusCode))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return lypherr.Errorf(lypherr.CodeServerRequestInvalid, "invalid response: %w", err)
	}
	return nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
