// internal/skills/literature.go
package skills

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/tandem/internal/evidence"
	"github.com/linnemanlabs/tandem/internal/llm"
)

// maxSnippets bounds how many retrieved excerpts are carried per gene; the
// verdict prompt quotes all of them.
const maxSnippets = 5

// Literature verifies candidates against published research. Retrieval is
// delegated to the literature search service (hybrid vector+keyword, with
// its own re-ranking); this skill builds a verdict per gene by showing the
// retrieved excerpts to the LLM. It is the expensive step: one retrieval
// and one model call per gene, which is why the engine defers it until the
// candidate pool is frozen and truncated.
type Literature struct {
	endpoint   string
	provider   llm.Provider
	httpClient *http.Client
	logger     log.Logger
}

// NewLiterature creates the literature verification skill.
func NewLiterature(endpoint string, provider llm.Provider, logger log.Logger) *Literature {
	if logger == nil {
		logger = log.Nop()
	}
	return &Literature{
		endpoint: endpoint,
		provider: provider,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (s *Literature) Name() Name { return CheckLiterature }

func (s *Literature) Description() string {
	return "Literature verification: retrieve published evidence per gene and synthesize a support verdict."
}

// Execute returns a JSON map of canonical gene symbol to verdict. A gene
// whose retrieval or verdict fails is skipped rather than failing the
// batch; partial verdicts are still useful to the ranking engine.
func (s *Literature) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Genes   []string `json:"genes"`
		Disease string   `json:"disease"`
		Mode    string   `json:"mode"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}
	if input.Mode == "" {
		input.Mode = "discovery"
	}

	verdicts := make(map[string]evidence.Verdict)
	for _, gene := range input.Genes {
		if gene == "" || gene == AutoPlaceholder {
			continue
		}
		symbol := evidence.CanonicalSymbol(gene)

		snippets, err := s.retrieve(ctx, symbol, input.Disease, input.Mode)
		if err != nil {
			s.logger.Warn(ctx, "literature retrieval failed", "gene", symbol, "error", err)
			continue
		}

		verdict, err := s.judge(ctx, symbol, input.Disease, input.Mode, snippets)
		if err != nil {
			s.logger.Warn(ctx, "literature verdict failed", "gene", symbol, "error", err)
			continue
		}
		verdicts[symbol] = *verdict
	}

	return json.Marshal(verdicts)
}

func (s *Literature) retrieve(ctx context.Context, gene, disease, mode string) ([]evidence.Snippet, error) {
	body, err := json.Marshal(map[string]any{
		"gene":    gene,
		"disease": disease,
		"mode":    mode,
		"limit":   maxSnippets,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("literature service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		Snippets []evidence.Snippet `json:"snippets"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(out.Snippets) > maxSnippets {
		out.Snippets = out.Snippets[:maxSnippets]
	}
	return out.Snippets, nil
}

func (s *Literature) judge(ctx context.Context, gene, disease, mode string, snippets []evidence.Snippet) (*evidence.Verdict, error) {
	resp, err := s.provider.Complete(ctx, verdictSystemPrompt, buildVerdictPrompt(gene, disease, mode, snippets))
	if err != nil {
		return nil, fmt.Errorf("llm call: %w", err)
	}

	var parsed struct {
		Support    string   `json:"support_level"`
		Conclusion string   `json:"conclusion"`
		Citations  []string `json:"key_citations"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(resp)), &parsed); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}

	return &evidence.Verdict{
		Support:    parsed.Support,
		Conclusion: parsed.Conclusion,
		Citations:  parsed.Citations,
		Snippets:   snippets,
	}, nil
}

const verdictSystemPrompt = `You are a biomedical literature analyst. Judge how strongly the provided ` +
	`publication excerpts support a gene as a therapeutic target. Respond with JSON only:
{"support_level": "...", "conclusion": "...", "key_citations": ["Author, Year", ...]}`

func buildVerdictPrompt(gene, disease, mode string, snippets []evidence.Snippet) string {
	var b strings.Builder

	switch mode {
	case "validation":
		fmt.Fprintf(&b, "Gene %s is a proposed target for %s. Judge the DIRECT published evidence linking it to this disease.\n", gene, disease)
		b.WriteString(`Use support_level "Strong (Direct Link)" or "Weak".` + "\n\n")
	default:
		fmt.Fprintf(&b, "Gene %s is a novel candidate target for %s. Judge whether evidence from other cancers supports repurposing it here.\n", gene, disease)
		b.WriteString(`Use support_level "Indirect-High (Proven in other cancers)" or "Low".` + "\n\n")
	}

	if len(snippets) == 0 {
		b.WriteString("No publications were retrieved. Report the lowest support level.\n")
		return b.String()
	}

	b.WriteString("Retrieved excerpts:\n")
	for i, sn := range snippets {
		fmt.Fprintf(&b, "%d. [%s] %s\n%s\n\n", i+1, sn.Citation, sn.Title, sn.Abstract)
	}
	return b.String()
}
