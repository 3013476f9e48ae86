// internal/omics/client.go

// Package omics is the client for the omics statistics service (differential
// expression, correlation, pathway enrichment). The pipeline runs elsewhere;
// this client fetches its precomputed per-gene signals.
package omics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/linnemanlabs/tandem/internal/evidence"
)

// Client queries the omics statistics service.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates an omics client for the given endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type geneSignal struct {
	Symbol     string  `json:"symbol"`
	Score      float64 `json:"score"`
	FoldChange float64 `json:"fold_change"`
	PValue     float64 `json:"p_value"`
	Summary    string  `json:"summary"`
}

type signalResponse struct {
	Genes []geneSignal `json:"genes"`
}

// TopGenes returns the highest-scoring genes from the differential
// expression screen, keyed by canonical symbol.
func (c *Client) TopGenes(ctx context.Context, limit int, threshold float64) (map[string]*evidence.NumericSignal, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("omics: invalid endpoint: %w", err)
	}
	u.Path = "/api/v1/top-genes"

	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("threshold", strconv.FormatFloat(threshold, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("omics: create request: %w", err)
	}
	return c.do(req)
}

// CheckGenes looks up signals for an explicit gene list. Genes absent from
// the dataset are simply missing from the result.
func (c *Client) CheckGenes(ctx context.Context, genes []string) (map[string]*evidence.NumericSignal, error) {
	body, err := json.Marshal(map[string]any{"genes": genes})
	if err != nil {
		return nil, fmt.Errorf("omics: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/v1/genes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("omics: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (map[string]*evidence.NumericSignal, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("omics: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("omics: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omics returned %d: %s", resp.StatusCode, string(respBody))
	}

	var sr signalResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, fmt.Errorf("omics: unmarshal response: %w", err)
	}

	out := make(map[string]*evidence.NumericSignal, len(sr.Genes))
	for _, g := range sr.Genes {
		out[evidence.CanonicalSymbol(g.Symbol)] = &evidence.NumericSignal{
			Score:      g.Score,
			FoldChange: g.FoldChange,
			PValue:     g.PValue,
			Summary:    g.Summary,
		}
	}
	return out, nil
}
