// internal/skills/external.go
package skills

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

// AutoPlaceholder marks a plan-step argument whose value cannot be known at
// planning time and is resolved by a later stage.
const AutoPlaceholder = "<auto>"

// External looks up disease association scores in the Open Targets platform
// via its GraphQL API. External scores augment candidates found by the
// discovery paths; they never originate one.
type External struct {
	endpoint   string
	httpClient *http.Client
}

// NewExternal creates the external-database skill for the given GraphQL
// endpoint.
func NewExternal(endpoint string) *External {
	return &External{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *External) Name() Name { return CheckExternal }

func (s *External) Description() string {
	return "Open Targets association score lookup for an explicit gene list."
}

const associationQuery = `query TargetAssociation($symbol: String!, $disease: String!) {
  target(approvedSymbol: $symbol) {
    associatedDiseases(name: $disease) {
      rows { score }
    }
  }
}`

type associationResponse struct {
	Data struct {
		Target *struct {
			AssociatedDiseases struct {
				Rows []struct {
					Score float64 `json:"score"`
				} `json:"rows"`
			} `json:"associatedDiseases"`
		} `json:"target"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute returns a JSON map of canonical gene symbol to association score.
// An empty or placeholder gene list is a no-op: the pool is not known yet,
// and this skill cannot resolve it.
func (s *External) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Genes   []string `json:"genes"`
		Disease string   `json:"disease"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}

	scores := make(map[string]float64)
	for _, gene := range input.Genes {
		if gene == "" || gene == AutoPlaceholder {
			continue
		}
		symbol := evidence.CanonicalSymbol(gene)
		score, ok, err := s.lookup(ctx, symbol, input.Disease)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", symbol, err)
		}
		if ok {
			scores[symbol] = score
		}
	}

	return json.Marshal(scores)
}

func (s *External) lookup(ctx context.Context, symbol, disease string) (float64, bool, error) {
	payload, err := json.Marshal(map[string]any{
		"query": associationQuery,
		"variables": map[string]string{
			"symbol":  symbol,
			"disease": disease,
		},
	})
	if err != nil {
		return 0, false, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("graphql request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, false, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("open targets returned %d: %s", resp.StatusCode, string(body))
	}

	var ar associationResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return 0, false, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(ar.Errors) > 0 {
		return 0, false, fmt.Errorf("open targets: %s", ar.Errors[0].Message)
	}
	if ar.Data.Target == nil || len(ar.Data.Target.AssociatedDiseases.Rows) == 0 {
		return 0, false, nil
	}
	return ar.Data.Target.AssociatedDiseases.Rows[0].Score, true, nil
}
