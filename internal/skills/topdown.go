// internal/skills/topdown.go
package skills

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/tandem/internal/evidence"
	"github.com/linnemanlabs/tandem/internal/kgraph"
	"github.com/linnemanlabs/tandem/internal/omics"
)

// TopDown is the knowledge-driven discovery path: traverse the graph for
// theoretically promising targets first, then back-fill each one with
// whatever omics signal the dataset holds. The graph service excludes known
// targets in discovery mode, so every record here is novel by construction.
type TopDown struct {
	omics          *omics.Client
	kg             *kgraph.Client
	defaultDisease string
}

// NewTopDown creates the top-down gathering skill.
func NewTopDown(oc *omics.Client, kc *kgraph.Client, defaultDisease string) *TopDown {
	return &TopDown{omics: oc, kg: kc, defaultDisease: defaultDisease}
}

func (s *TopDown) Name() Name { return GatherTopDown }

func (s *TopDown) Description() string {
	return "Knowledge-driven discovery: graph traversal for theoretical candidates, back-filled with omics signals."
}

// Execute runs the top-down path and returns a JSON map of canonical gene
// symbol to evidence record.
func (s *TopDown) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Disease string `json:"disease"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, fmt.Errorf("invalid args: %w", err)
		}
	}
	if input.Disease == "" {
		input.Disease = s.defaultDisease
	}

	disc, err := s.kg.Discover(ctx, input.Disease)
	if err != nil {
		return nil, fmt.Errorf("graph traversal: %w", err)
	}

	signals, err := s.omics.CheckGenes(ctx, disc.Candidates)
	if err != nil {
		return nil, fmt.Errorf("omics back-fill: %w", err)
	}

	records := make(map[string]evidence.Record, len(disc.Candidates))
	for _, gene := range disc.Candidates {
		records[gene] = evidence.Record{
			Symbol:    gene,
			Source:    evidence.SourceTopDown,
			Known:     false,
			Narrative: disc.Narratives[gene],
			Facts:     disc.Facts[gene],
			Signal:    signals[gene],
		}
	}

	return json.Marshal(records)
}
