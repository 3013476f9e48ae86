// internal/planner/planner_test.go
package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/tandem/internal/discovery"
	"github.com/linnemanlabs/tandem/internal/skills"
)

type fakeProvider struct {
	response string
	err      error
	called   bool
}

func (f *fakeProvider) Complete(_ context.Context, _, _ string) (string, error) {
	f.called = true
	return f.response, f.err
}

func TestExtractGenes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		task string
		want []string
	}{
		{
			name: "single gene",
			task: "validate TP53 in breast cancer",
			want: []string{"TP53"},
		},
		{
			name: "multiple genes deduplicated in order",
			task: "verify KRAS and TP53, then KRAS again",
			want: []string{"KRAS", "TP53"},
		},
		{
			name: "stopwords filtered",
			task: "IS THE DNA OF IT relevant",
			want: nil,
		},
		{
			name: "no uppercase tokens",
			task: "find novel targets for glioblastoma",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractGenes(tt.task)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractGenes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanRuleShortcut(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{response: `should not be used`}
	p := New(fake, log.Nop())

	steps, mode, err := p.Plan(context.Background(), "validate TP53 in breast cancer", "Breast Cancer")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if fake.called {
		t.Error("rule shortcut still called the provider")
	}
	if mode != discovery.ModeValidation {
		t.Errorf("mode = %s, want validation", mode)
	}
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}
	if steps[0].Skill != skills.VerifyTargets {
		t.Errorf("steps[0] = %s, want %s", steps[0].Skill, skills.VerifyTargets)
	}
	if steps[2].Skill != skills.CheckLiterature {
		t.Errorf("steps[2] = %s, want %s", steps[2].Skill, skills.CheckLiterature)
	}
	genes, ok := steps[0].Args["genes"].([]string)
	if !ok || len(genes) != 1 || genes[0] != "TP53" {
		t.Errorf("genes arg = %v", steps[0].Args["genes"])
	}
}

func TestPlanModelResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{response: "```json\n" + `{
		"mode": "discovery",
		"steps": [
			{"skill": "gather_bottom_up", "args": {"disease": "Glioblastoma", "threshold": 7.0}},
			{"skill": "gather_top_down", "args": {"disease": "Glioblastoma"}},
			{"skill": "check_literature", "args": {"genes": "<auto>"}}
		]
	}` + "\n```"}
	p := New(fake, log.Nop())

	steps, mode, err := p.Plan(context.Background(), "find novel targets for glioblastoma", "Glioblastoma")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if mode != discovery.ModeDiscovery {
		t.Errorf("mode = %s, want discovery", mode)
	}
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}
	if steps[0].Skill != skills.GatherBottomUp {
		t.Errorf("steps[0] = %s", steps[0].Skill)
	}
	if steps[2].Args["genes"] != skills.AutoPlaceholder {
		t.Errorf("deferred genes = %v, want placeholder", steps[2].Args["genes"])
	}
}

func TestPlanFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fake    *fakeProvider
		wantErr bool
	}{
		{
			name:    "provider error",
			fake:    &fakeProvider{err: errors.New("boom")},
			wantErr: true,
		},
		{
			name: "malformed json",
			fake: &fakeProvider{response: "I think you should look at TP53"},
		},
		{
			name: "unknown skill",
			fake: &fakeProvider{response: `{"mode":"discovery","steps":[{"skill":"summon_demon"}]}`},
		},
		{
			name: "unknown mode",
			fake: &fakeProvider{response: `{"mode":"yolo","steps":[{"skill":"gather_top_down"}]}`},
		},
		{
			name: "empty steps",
			fake: &fakeProvider{response: `{"mode":"discovery","steps":[]}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := New(tt.fake, log.Nop())
			steps, mode, err := p.Plan(context.Background(), "find something new", "Glioblastoma")
			if tt.wantErr && err == nil {
				t.Error("want advisory error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if mode != discovery.ModeDiscovery {
				t.Errorf("fallback mode = %s, want discovery", mode)
			}
			want := discovery.DefaultPlan("Glioblastoma")
			if len(steps) != len(want) {
				t.Fatalf("fallback steps = %d, want %d", len(steps), len(want))
			}
			for i := range steps {
				if steps[i].Skill != want[i].Skill {
					t.Errorf("steps[%d] = %s, want %s", i, steps[i].Skill, want[i].Skill)
				}
			}
		})
	}
}
