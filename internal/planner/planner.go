// internal/planner/planner.go

// Package planner turns free-text research tasks into executable discovery
// plans. A cheap rule pass handles unambiguous validation requests without
// an LLM round-trip; everything else is planned by the model, with the
// full-discovery plan as the fallback when the model's output is unusable.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/tandem/internal/discovery"
	"github.com/linnemanlabs/tandem/internal/llm"
	"github.com/linnemanlabs/tandem/internal/skills"
)

const systemPrompt = `You are a research planning assistant for a drug-target
discovery pipeline. Given a research task, respond with ONLY a JSON object:

{"mode": "discovery" | "validation", "steps": [{"skill": "...", "args": {...}}]}

Available skills:
- gather_bottom_up: screen omics data for novel candidates (args: disease, threshold)
- gather_top_down: query the knowledge graph for mechanistic candidates (args: disease)
- verify_targets: pull targeted evidence for specific genes (args: genes, disease)
- check_external: fetch association scores from Open Targets (args: genes, disease)
- check_literature: judge literature support for genes (args: genes, disease)

Use "<auto>" as the genes value for check_literature when the gene list is
not known until after evidence gathering. Respond with JSON only.`

// geneToken matches symbols like TP53, GPR68, KRAS. Short all-caps English
// words are filtered by the stopword set, not the pattern.
var geneToken = regexp.MustCompile(`\b[A-Z][A-Z0-9-]{1,9}\b`)

var stopwords = map[string]bool{
	"A": true, "AN": true, "AND": true, "ARE": true, "AS": true, "AT": true,
	"BE": true, "BY": true, "DNA": true, "DO": true, "FOR": true, "IF": true,
	"IN": true, "IS": true, "IT": true, "NOT": true, "OF": true, "ON": true,
	"OR": true, "RNA": true, "THE": true, "TO": true, "WITH": true,
}

var validationVerbs = []string{"validate", "verify", "confirm", "assess"}

// Planner produces discovery plans. The zero value is not usable; construct
// with New.
type Planner struct {
	provider llm.Provider
	logger   log.Logger
}

// New creates a planner backed by the given LLM provider.
func New(provider llm.Provider, logger log.Logger) *Planner {
	if logger == nil {
		logger = log.Nop()
	}
	return &Planner{provider: provider, logger: logger}
}

// Plan produces a step list and mode for the task. It never fails a run on
// planning problems alone: an unusable model response degrades to the
// default full-discovery plan, and the returned error (if any) is advisory.
func (p *Planner) Plan(ctx context.Context, task, disease string) ([]discovery.PlanStep, discovery.Mode, error) {
	if steps, ok := p.ruleShortcut(task, disease); ok {
		p.logger.Info(ctx, "planned by rule", "steps", len(steps))
		return steps, discovery.ModeValidation, nil
	}

	prompt := fmt.Sprintf("Task: %s\nDisease context: %s", task, disease)
	raw, err := p.provider.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return discovery.DefaultPlan(disease), discovery.ModeDiscovery,
			fmt.Errorf("plan completion: %w", err)
	}

	steps, mode, err := parsePlan(raw)
	if err != nil {
		p.logger.Error(ctx, err, "unusable model plan, using default")
		return discovery.DefaultPlan(disease), discovery.ModeDiscovery, nil
	}

	p.logger.Info(ctx, "planned by model", "mode", mode, "steps", len(steps))
	return steps, mode, nil
}

// ruleShortcut recognizes explicit validation requests: a validation verb
// plus at least one gene-like token. It skips the model entirely.
func (p *Planner) ruleShortcut(task, disease string) ([]discovery.PlanStep, bool) {
	lower := strings.ToLower(task)
	verb := false
	for _, v := range validationVerbs {
		if strings.Contains(lower, v) {
			verb = true
			break
		}
	}
	if !verb {
		return nil, false
	}

	genes := ExtractGenes(task)
	if len(genes) == 0 {
		return nil, false
	}

	return []discovery.PlanStep{
		{Skill: skills.VerifyTargets, Args: map[string]any{"genes": genes, "disease": disease}},
		{Skill: skills.CheckExternal, Args: map[string]any{"genes": genes, "disease": disease}},
		{Skill: skills.CheckLiterature, Args: map[string]any{"genes": genes, "disease": disease}},
	}, true
}

// ExtractGenes returns the gene-like tokens in task, in order of first
// appearance, deduplicated.
func ExtractGenes(task string) []string {
	var genes []string
	seen := make(map[string]bool)
	for _, tok := range geneToken.FindAllString(task, -1) {
		if stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		genes = append(genes, tok)
	}
	return genes
}

type planDoc struct {
	Mode  string `json:"mode"`
	Steps []struct {
		Skill string         `json:"skill"`
		Args  map[string]any `json:"args"`
	} `json:"steps"`
}

func parsePlan(raw string) ([]discovery.PlanStep, discovery.Mode, error) {
	var doc planDoc
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &doc); err != nil {
		return nil, "", fmt.Errorf("decode plan: %w", err)
	}
	if len(doc.Steps) == 0 {
		return nil, "", fmt.Errorf("plan has no steps")
	}

	mode := discovery.Mode(doc.Mode)
	if mode != discovery.ModeDiscovery && mode != discovery.ModeValidation {
		return nil, "", fmt.Errorf("unknown mode %q", doc.Mode)
	}

	steps := make([]discovery.PlanStep, 0, len(doc.Steps))
	for _, s := range doc.Steps {
		name := skills.Name(s.Skill)
		switch name {
		case skills.GatherBottomUp, skills.GatherTopDown, skills.VerifyTargets,
			skills.CheckExternal, skills.CheckLiterature:
		default:
			return nil, "", fmt.Errorf("unknown skill %q", s.Skill)
		}
		args := s.Args
		if args == nil {
			args = map[string]any{}
		}
		steps = append(steps, discovery.PlanStep{Skill: name, Args: args})
	}
	return steps, mode, nil
}
