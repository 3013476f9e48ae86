// internal/skills/verify.go
package skills

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/tandem/internal/evidence"
	"github.com/linnemanlabs/tandem/internal/kgraph"
	"github.com/linnemanlabs/tandem/internal/omics"
)

// Verify is the targeted validation path: for an explicit gene list, pull
// every line of evidence from both services. Unlike the discovery paths,
// known-target status is reported truthfully and never filtered here; the
// fusion engine's mode decides what to do with it.
type Verify struct {
	omics          *omics.Client
	kg             *kgraph.Client
	defaultDisease string
}

// NewVerify creates the targeted validation skill.
func NewVerify(oc *omics.Client, kc *kgraph.Client, defaultDisease string) *Verify {
	return &Verify{omics: oc, kg: kc, defaultDisease: defaultDisease}
}

func (s *Verify) Name() Name { return VerifyTargets }

func (s *Verify) Description() string {
	return "Targeted validation: full evidence pull for an explicit gene list, known status reported truthfully."
}

// Execute pulls all evidence for the requested genes and returns a JSON map
// of canonical gene symbol to evidence record.
func (s *Verify) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Genes   []string `json:"genes"`
		Disease string   `json:"disease"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}
	if len(input.Genes) == 0 {
		return nil, fmt.Errorf("genes list is required")
	}
	if input.Disease == "" {
		input.Disease = s.defaultDisease
	}

	genes := make([]string, 0, len(input.Genes))
	for _, g := range input.Genes {
		genes = append(genes, evidence.CanonicalSymbol(g))
	}

	signals, err := s.omics.CheckGenes(ctx, genes)
	if err != nil {
		return nil, fmt.Errorf("omics lookup: %w", err)
	}

	assessment, err := s.kg.Assess(ctx, genes, input.Disease)
	if err != nil {
		return nil, fmt.Errorf("graph lookup: %w", err)
	}

	// Targeted evidence feeds the data-driven slot so validation runs rank
	// on the same numeric signals as discovery runs.
	records := make(map[string]evidence.Record, len(genes))
	for _, gene := range genes {
		records[gene] = evidence.Record{
			Symbol:    gene,
			Source:    evidence.SourceBottomUp,
			Known:     assessment.Known[gene],
			Narrative: assessment.Narratives[gene],
			Facts:     assessment.Facts[gene],
			Signal:    signals[gene],
		}
	}

	return json.Marshal(records)
}
