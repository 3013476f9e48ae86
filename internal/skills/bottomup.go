// internal/skills/bottomup.go
package skills

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/tandem/internal/evidence"
	"github.com/linnemanlabs/tandem/internal/kgraph"
	"github.com/linnemanlabs/tandem/internal/omics"
)

const (
	// DefaultThreshold is the omics score cutoff used when the planner
	// does not supply one.
	DefaultThreshold = 6.0

	// screenLimit caps how many top omics genes are carried into the
	// graph cross-check.
	screenLimit = 30
)

// BottomUp is the data-driven discovery path: screen the omics data for the
// strongest signals first, then ask the knowledge graph whether each hit is
// a plausible novel target. Known targets are dropped at this boundary;
// this path only ever proposes novel candidates.
type BottomUp struct {
	omics          *omics.Client
	kg             *kgraph.Client
	defaultDisease string
}

// NewBottomUp creates the bottom-up gathering skill.
func NewBottomUp(oc *omics.Client, kc *kgraph.Client, defaultDisease string) *BottomUp {
	return &BottomUp{omics: oc, kg: kc, defaultDisease: defaultDisease}
}

func (s *BottomUp) Name() Name { return GatherBottomUp }

func (s *BottomUp) Description() string {
	return "Data-driven discovery: top omics signals cross-checked against the knowledge graph, known targets excluded."
}

// Execute runs the bottom-up path and returns a JSON map of canonical gene
// symbol to evidence record.
func (s *BottomUp) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Threshold float64 `json:"threshold"`
		Disease   string  `json:"disease"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("invalid args: %w", err)
		}
	}
	if input.Threshold == 0 {
		input.Threshold = DefaultThreshold
	}
	if input.Disease == "" {
		input.Disease = s.defaultDisease
	}

	signals, err := s.omics.TopGenes(ctx, screenLimit, input.Threshold)
	if err != nil {
		return nil, fmt.Errorf("omics screen: %w", err)
	}

	genes := make([]string, 0, len(signals))
	for g := range signals {
		genes = append(genes, g)
	}

	assessment, err := s.kg.Assess(ctx, genes, input.Disease)
	if err != nil {
		return nil, fmt.Errorf("graph cross-check: %w", err)
	}

	records := make(map[string]evidence.Record, len(signals))
	for gene, sig := range signals {
		if assessment.Known[gene] {
			continue
		}
		narrative := assessment.Narratives[gene]
		if narrative == "" {
			narrative = "Potential novel link identified via omics screen."
		}
		records[gene] = evidence.Record{
			Symbol:    gene,
			Source:    evidence.SourceBottomUp,
			Known:     false,
			Narrative: narrative,
			Facts:     assessment.Facts[gene],
			Signal:    sig,
		}
	}

	return json.Marshal(records)
}
