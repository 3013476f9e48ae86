// internal/evidence/evidence.go
package evidence

import "strings"

// Source identifies which discovery strategy produced a record.
type Source string

const (
	// SourceBottomUp is the data-driven path: omics screen first, knowledge graph second.
	SourceBottomUp Source = "bottom_up"

	// SourceTopDown is the knowledge-driven path: graph traversal first, omics back-fill second.
	SourceTopDown Source = "top_down"
)

// NumericSignal is the omics measurement attached to a record, when present.
type NumericSignal struct {
	Score      float64 `json:"score"`
	FoldChange float64 `json:"fold_change"`
	PValue     float64 `json:"p_value"`
	Summary    string  `json:"summary,omitempty"`
}

// Record is a single per-(candidate, source) observation. Records are
// immutable facts: collaborators build them once at their boundary and the
// fusion engine only reads them.
type Record struct {
	Symbol    string         `json:"symbol"`
	Source    Source         `json:"source"`
	Known     bool           `json:"known"`
	Narrative string         `json:"narrative,omitempty"`
	Facts     []string       `json:"facts,omitempty"`
	Signal    *NumericSignal `json:"signal,omitempty"`
}

// Snippet is a retrieved literature excerpt carried inside a Verdict.
type Snippet struct {
	Title    string `json:"title"`
	Citation string `json:"citation"`
	Abstract string `json:"abstract"`
	Source   string `json:"source,omitempty"`
}

// Verdict is the literature verification outcome for one candidate.
type Verdict struct {
	Support    string    `json:"support"`
	Conclusion string    `json:"conclusion"`
	Citations  []string  `json:"citations,omitempty"`
	Snippets   []Snippet `json:"snippets,omitempty"`
}

// CanonicalSymbol normalizes a gene symbol for use as a candidate identity.
// Every collaborator must key its output with this before records cross the
// boundary; the fusion engine matches identities by exact string equality
// and never re-normalizes.
func CanonicalSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
