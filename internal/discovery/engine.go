// internal/discovery/engine.go
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/tandem/internal/evidence"
	"github.com/linnemanlabs/tandem/internal/skills"
)

var tracer = otel.Tracer("github.com/linnemanlabs/tandem/internal/discovery")

const (
	// TopN bounds how many candidates enter deferred verification,
	// regardless of discovery-pool size.
	TopN = 20

	// DefaultBranchTimeout is the per-branch deadline when the caller
	// does not configure one. A branch that exceeds it becomes a failed
	// branch, never a fatal abort.
	DefaultBranchTimeout = 5 * time.Minute
)

// Planner turns a free-text research task into an executable step list and
// a mode. The engine never inspects raw task text itself.
type Planner interface {
	Plan(ctx context.Context, task, disease string) ([]PlanStep, Mode, error)
}

// CompleteEvent summarizes a finished run for the metrics hooks.
type CompleteEvent struct {
	State      State
	Mode       Mode
	Duration   float64
	Candidates int
	Rejected   int
	Errors     int
}

// EngineHooks lets the caller observe engine activity without the engine
// depending on a metrics backend.
type EngineHooks struct {
	OnBranch       func(skill string, status string, seconds float64)
	OnVerification func(candidates int, seconds float64, failed bool)
	OnComplete     func(e *CompleteEvent)
}

// Engine drives a discovery run through its states: plan, concurrent
// evidence gathering, fusion, deferred verification, report.
type Engine struct {
	dispatcher    *skills.Dispatcher
	planner       Planner
	store         Store
	logger        log.Logger
	hooks         EngineHooks
	branchTimeout time.Duration
}

// NewEngine creates a discovery engine with the given dependencies. store
// may be nil, in which case intermediate run states are not persisted.
func NewEngine(dispatcher *skills.Dispatcher, planner Planner, store Store, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		dispatcher:    dispatcher,
		planner:       planner,
		store:         store,
		logger:        logger,
		hooks:         hooks,
		branchTimeout: DefaultBranchTimeout,
	}
}

// SetBranchTimeout overrides the per-branch deadline.
func (e *Engine) SetBranchTimeout(d time.Duration) {
	if d > 0 {
		e.branchTimeout = d
	}
}

// DefaultPlan is the full-discovery fallback used when the planner cannot
// produce a step list: both gathering paths plus a deferred literature
// check whose gene list is resolved after merge.
func DefaultPlan(disease string) []PlanStep {
	return []PlanStep{
		{Skill: skills.GatherBottomUp, Args: map[string]any{"disease": disease}},
		{Skill: skills.GatherTopDown, Args: map[string]any{"disease": disease}},
		{Skill: skills.CheckLiterature, Args: map[string]any{"genes": skills.AutoPlaceholder, "disease": disease}},
	}
}

// branchResult is one gathering branch's contribution. Branches write
// disjoint slots of a preallocated slice, so no locking is needed among
// them; errors are collected after the fan-in barrier in plan order.
type branchResult struct {
	step    PlanStep
	records map[string]evidence.Record
	scores  map[string]float64
	err     string
}

// Run executes a submitted run to a terminal state. It never returns an
// unhandled failure: collaborator errors are absorbed into the run's error
// list and the run always reaches "reported" or "empty".
func (e *Engine) Run(ctx context.Context, run *Run) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "discovery.run", trace.WithAttributes(
		attribute.String("tandem.run.id", run.ID),
		attribute.String("tandem.run.disease", run.Disease),
	))
	defer span.End()

	L := e.logger.With("run_id", run.ID, "disease", run.Disease)

	// plan
	steps, mode, err := e.planner.Plan(ctx, run.Task, run.Disease)
	if err != nil {
		L.Error(ctx, err, "planner failed, using default discovery plan")
		run.Errors = append(run.Errors, fmt.Sprintf("planner: %v", err))
		steps, mode = DefaultPlan(run.Disease), ModeDiscovery
	}
	run.Plan = steps
	run.Mode = mode
	run.State = StatePlanned
	span.SetAttributes(attribute.String("tandem.run.mode", string(mode)))
	e.persist(ctx, run)

	var gather []PlanStep
	var deferredArgs map[string]any
	for _, step := range steps {
		switch {
		case step.Skill.Gathering():
			gather = append(gather, step)
		case step.Skill == skills.CheckLiterature:
			// Captured, not scheduled: its input is computed after merge.
			if deferredArgs == nil {
				deferredArgs = cloneArgs(step.Args)
			}
		default:
			run.Errors = append(run.Errors, fmt.Sprintf("plan: unknown skill %s", step.Skill))
		}
	}

	L.Info(ctx, "run planned", "mode", mode, "steps", len(steps), "branches", len(gather))

	// gather: fan out one branch per step, fan in before merge. A branch
	// failure contributes an empty result and one error entry.
	branches := make(map[evidence.Source]map[string]evidence.Record)
	external := make(map[string]float64)

	if len(gather) > 0 {
		run.State = StateGathering
		e.persist(ctx, run)

		results := make([]branchResult, len(gather))
		g, gctx := errgroup.WithContext(ctx)
		for i, step := range gather {
			g.Go(func() error {
				results[i] = e.runBranch(gctx, run.Disease, step)
				return nil
			})
		}
		_ = g.Wait()

		for _, br := range results {
			if br.err != "" {
				run.Errors = append(run.Errors, br.err)
				continue
			}
			for symbol, rec := range br.records {
				slot, ok := branches[rec.Source]
				if !ok {
					slot = make(map[string]evidence.Record)
					branches[rec.Source] = slot
				}
				slot[symbol] = rec
			}
			for symbol, score := range br.scores {
				if score > external[symbol] {
					external[symbol] = score
				}
			}
		}
	}

	// merge: single writer, strictly after the fan-in barrier.
	run.State = StateMerged
	pool := Fuse(branches, run.Mode)
	pool.AttachExternal(external)
	run.RejectedKnown = pool.RejectedKnown()
	e.persist(ctx, run)

	L.Info(ctx, "evidence merged",
		"candidates", pool.Size(),
		"rejected_known", len(run.RejectedKnown),
		"errors", len(run.Errors),
	)

	if pool.Size() == 0 {
		e.finish(ctx, L, run, StateEmpty, nil, start)
		return
	}

	// Freeze the top pool: verification re-scores members but never
	// changes membership.
	top := pool.TopSymbols(TopN)

	run.State = StateVerifying
	e.persist(ctx, run)
	verdicts := e.verifyTop(ctx, run, top, deferredArgs)
	pool.ApplyVerdicts(verdicts)

	e.finish(ctx, L, run, StateReported, pool.Project(top), start)
}

func (e *Engine) runBranch(ctx context.Context, disease string, step PlanStep) branchResult {
	bctx, cancel := context.WithTimeout(ctx, e.branchTimeout)
	defer cancel()

	args := cloneArgs(step.Args)
	if _, ok := args["disease"]; !ok {
		args["disease"] = disease
	}

	out := e.dispatcher.Invoke(bctx, step.Skill, args)
	if e.hooks.OnBranch != nil {
		e.hooks.OnBranch(string(step.Skill), string(out.Status), out.Duration.Seconds())
	}
	if !out.OK() {
		return branchResult{step: step, err: fmt.Sprintf("%s: %s", step.Skill, out.Err)}
	}

	if step.Skill == skills.CheckExternal {
		var scores map[string]float64
		if err := json.Unmarshal(out.Data, &scores); err != nil {
			return branchResult{step: step, err: fmt.Sprintf("%s: decode scores: %v", step.Skill, err)}
		}
		return branchResult{step: step, scores: scores}
	}

	var records map[string]evidence.Record
	if err := json.Unmarshal(out.Data, &records); err != nil {
		return branchResult{step: step, err: fmt.Sprintf("%s: decode records: %v", step.Skill, err)}
	}
	return branchResult{step: step, records: records}
}

func (e *Engine) finish(ctx context.Context, L log.Logger, run *Run, state State, report []RankedCandidate, start time.Time) {
	run.State = state
	run.Report = report
	run.Conclusion = conclude(report)
	run.CompletedAt = time.Now()
	run.Duration = time.Since(start).Seconds()
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("tandem.run.state", string(state)))
	e.persist(ctx, run)

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&CompleteEvent{
			State:      state,
			Mode:       run.Mode,
			Duration:   run.Duration,
			Candidates: len(report),
			Rejected:   len(run.RejectedKnown),
			Errors:     len(run.Errors),
		})
	}

	L.Info(ctx, "run complete",
		"state", state,
		"duration", run.Duration,
		"candidates", len(report),
		"errors", len(run.Errors),
	)
}

// persist writes the run's current state so it is observable mid-run. A
// persistence failure degrades observability only, never the run itself.
func (e *Engine) persist(ctx context.Context, run *Run) {
	if e.store == nil {
		return
	}
	if err := e.store.Put(ctx, run); err != nil {
		e.logger.Error(ctx, err, "failed to persist run state", "run_id", run.ID, "state", run.State)
	}
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+2)
	for k, v := range args {
		out[k] = v
	}
	return out
}
