// internal/kgraph/client.go

// Package kgraph is the client for the knowledge-graph query service. The
// graph engine itself (traversal, embedding lookups) lives behind an HTTP
// API; this client only shapes requests and canonicalizes the response.
package kgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/tandem/internal/evidence"
)

// Client queries the knowledge-graph service.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a knowledge-graph client for the given endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Discovery is the result of an open-ended graph traversal for a disease:
// candidate symbols with per-symbol narrative hypotheses and raw facts.
// Known targets are already excluded by the graph service in this mode.
type Discovery struct {
	Candidates []string            `json:"candidates"`
	Narratives map[string]string   `json:"narratives"`
	Facts      map[string][]string `json:"facts"`
}

// Assessment is the result of a targeted lookup for an explicit gene list.
// Known reports, truthfully, whether each gene is an established target for
// the disease; callers decide what to do with that.
type Assessment struct {
	Narratives map[string]string   `json:"narratives"`
	Known      map[string]bool     `json:"known"`
	Facts      map[string][]string `json:"facts"`
}

// Discover runs an open-ended traversal for the disease.
func (c *Client) Discover(ctx context.Context, disease string) (*Discovery, error) {
	var out Discovery
	if err := c.post(ctx, "/api/v1/discover", map[string]any{"disease": disease}, &out); err != nil {
		return nil, fmt.Errorf("kgraph discover: %w", err)
	}

	canon := make([]string, 0, len(out.Candidates))
	for _, g := range out.Candidates {
		canon = append(canon, evidence.CanonicalSymbol(g))
	}
	out.Candidates = canon
	out.Narratives = canonKeys(out.Narratives)
	out.Facts = canonKeys(out.Facts)
	return &out, nil
}

// Assess runs a targeted lookup for an explicit gene list.
func (c *Client) Assess(ctx context.Context, genes []string, disease string) (*Assessment, error) {
	var out Assessment
	req := map[string]any{"genes": genes, "disease": disease}
	if err := c.post(ctx, "/api/v1/assess", req, &out); err != nil {
		return nil, fmt.Errorf("kgraph assess: %w", err)
	}

	out.Narratives = canonKeys(out.Narratives)
	out.Known = canonKeys(out.Known)
	out.Facts = canonKeys(out.Facts)
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("kgraph returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// canonKeys rekeys a map by canonical gene symbol. The graph service is not
// consistent about casing across traversal modes, so identity is fixed here,
// once, at the boundary.
func canonKeys[V any](in map[string]V) map[string]V {
	if in == nil {
		return nil
	}
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[evidence.CanonicalSymbol(k)] = v
	}
	return out
}
