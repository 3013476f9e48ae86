// internal/discovery/model.go
package discovery

import (
	"fmt"
	"time"

	"github.com/linnemanlabs/tandem/internal/evidence"
	"github.com/linnemanlabs/tandem/internal/skills"
)

// Mode selects the known-target policy for a run.
type Mode string

const (
	// ModeDiscovery excludes established targets: the point is novelty.
	ModeDiscovery Mode = "discovery"

	// ModeValidation retains established targets with a fixed high tier:
	// the point is collecting evidence for a named list.
	ModeValidation Mode = "validation"
)

// State tracks where a run is in its lifecycle.
type State string

const (
	// StatePending means created, planner not yet invoked
	StatePending State = "pending"

	// StatePlanned means the step list is fixed
	StatePlanned State = "planned"

	// StateGathering means evidence branches are in flight
	StateGathering State = "gathering"

	// StateMerged means fusion is done and the top pool is frozen
	StateMerged State = "merged"

	// StateVerifying means the deferred literature step is running
	StateVerifying State = "verifying"

	// StateReported is the normal terminal state
	StateReported State = "reported"

	// StateEmpty is the terminal state for a run whose fusion produced no
	// candidates. Not an error.
	StateEmpty State = "empty"
)

// Terminal reports whether a run has finished.
func (s State) Terminal() bool { return s == StateReported || s == StateEmpty }

// PlanStep is one planner-produced unit of work. Immutable once planned.
type PlanStep struct {
	Skill skills.Name    `json:"skill"`
	Args  map[string]any `json:"args,omitempty"`
}

// OmicsSnapshot is the fold-change/p-value pair captured on first sighting
// of a numeric signal for a candidate.
type OmicsSnapshot struct {
	FoldChange float64 `json:"fold_change"`
	PValue     float64 `json:"p_value"`
}

// RankedCandidate is the read-only report projection of a fused candidate.
type RankedCandidate struct {
	Rank           int               `json:"rank"`
	Symbol         string            `json:"symbol"`
	Tier           Tier              `json:"tier"`
	Score          float64           `json:"score"`
	Sources        []evidence.Source `json:"sources"`
	ActionGuide    string            `json:"action_guide"`
	Narrative      string            `json:"narrative,omitempty"`
	Omics          *OmicsSnapshot    `json:"omics,omitempty"`
	BestOmicsScore float64           `json:"best_omics_score"`
	ExternalScore  float64           `json:"external_score,omitempty"`
	Facts          []string          `json:"facts,omitempty"`
	NumericSummary string            `json:"numeric_summary,omitempty"`
	Literature     *evidence.Verdict `json:"literature,omitempty"`
}

// Run is the per-run aggregate. Created at submit, populated stage by
// stage, persisted through the Store at each transition.
type Run struct {
	ID            string            `json:"id"`
	Task          string            `json:"task"`
	Disease       string            `json:"disease"`
	Mode          Mode              `json:"mode"`
	State         State             `json:"state"`
	Plan          []PlanStep        `json:"plan,omitempty"`
	Errors        []string          `json:"errors,omitempty"`
	RejectedKnown []string          `json:"rejected_known,omitempty"`
	Report        []RankedCandidate `json:"report,omitempty"`
	Conclusion    string            `json:"conclusion,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   time.Time         `json:"completed_at,omitempty"`
	Duration      float64           `json:"duration_seconds,omitempty"`
}

// Summary is the serialized shape handed to external persistence for
// historical reuse.
type Summary struct {
	Task       string   `json:"task"`
	Status     string   `json:"status"`
	Steps      []string `json:"steps"`
	Conclusion string   `json:"conclusion"`
}

// Summarize flattens a run into its persistence summary.
func (r *Run) Summarize() *Summary {
	steps := make([]string, 0, len(r.Plan))
	for _, s := range r.Plan {
		steps = append(steps, string(s.Skill))
	}
	return &Summary{
		Task:       r.Task,
		Status:     string(r.State),
		Steps:      steps,
		Conclusion: r.Conclusion,
	}
}

// conclude produces the human-readable outcome line for a finished run.
func conclude(report []RankedCandidate) string {
	if len(report) == 0 {
		return "no candidates found"
	}
	top := report[0]
	return fmt.Sprintf("%d candidates ranked; top: %s (%s, score %.1f)",
		len(report), top.Symbol, top.Tier, top.Score)
}
