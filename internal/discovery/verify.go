// internal/discovery/verify.go
package discovery

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/tandem/internal/evidence"
	"github.com/linnemanlabs/tandem/internal/skills"
)

// verifyTop runs the deferred literature check over the frozen top
// candidates. The planner's captured args are preserved except for the
// gene list, which is always the resolved top set; a planner that wrote
// the auto placeholder there gets exactly the substitution it asked for.
// Verification failure degrades the run, it never aborts it: the report
// keeps its pre-verification scores and gains one error entry.
func (e *Engine) verifyTop(ctx context.Context, run *Run, top []string, captured map[string]any) map[string]evidence.Verdict {
	if len(top) == 0 {
		return nil
	}
	if len(top) > TopN {
		top = top[:TopN]
	}

	args := cloneArgs(captured)
	args["genes"] = top
	if _, ok := args["disease"]; !ok {
		args["disease"] = run.Disease
	}
	if _, ok := args["mode"]; !ok {
		args["mode"] = string(run.Mode)
	}

	out := e.dispatcher.Invoke(ctx, skills.CheckLiterature, args)
	if e.hooks.OnVerification != nil {
		e.hooks.OnVerification(len(top), out.Duration.Seconds(), !out.OK())
	}
	if !out.OK() {
		run.Errors = append(run.Errors, fmt.Sprintf("%s: %s", skills.CheckLiterature, out.Err))
		return nil
	}

	var verdicts map[string]evidence.Verdict
	if err := json.Unmarshal(out.Data, &verdicts); err != nil {
		run.Errors = append(run.Errors, fmt.Sprintf("%s: decode verdicts: %v", skills.CheckLiterature, err))
		return nil
	}
	return verdicts
}
