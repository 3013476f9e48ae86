// internal/skills/dispatch_test.go
package skills

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

type stubSkill struct {
	name    Name
	execute func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

func (s *stubSkill) Name() Name          { return s.name }
func (s *stubSkill) Description() string { return "stub" }
func (s *stubSkill) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return s.execute(ctx, args)
}

func TestName_Gathering(t *testing.T) {
	t.Parallel()

	gathering := []Name{GatherBottomUp, GatherTopDown, VerifyTargets, CheckExternal}
	for _, n := range gathering {
		if !n.Gathering() {
			t.Errorf("%s.Gathering() = false, want true", n)
		}
	}
	if CheckLiterature.Gathering() {
		t.Error("check_literature must not be a gathering skill")
	}
	if Name("bogus").Gathering() {
		t.Error("unknown name must not be a gathering skill")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubSkill{name: GatherTopDown})

	if _, ok := r.Get(GatherTopDown); !ok {
		t.Error("registered skill not found")
	}
	if _, ok := r.Get(GatherBottomUp); ok {
		t.Error("unregistered skill reported found")
	}
	if names := r.Names(); len(names) != 1 || names[0] != GatherTopDown {
		t.Errorf("Names() = %v", names)
	}
}

func TestInvoke_Success(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var gotArgs json.RawMessage
	r.Register(&stubSkill{
		name: GatherTopDown,
		execute: func(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
			gotArgs = args
			return json.RawMessage(`{"TP53":{}}`), nil
		},
	})

	d := NewDispatcher(r, log.Nop())
	out := d.Invoke(context.Background(), GatherTopDown, map[string]any{"disease": "Glioblastoma"})

	if !out.OK() {
		t.Fatalf("status = %s, err = %s", out.Status, out.Err)
	}
	if out.Skill != GatherTopDown {
		t.Errorf("skill = %s", out.Skill)
	}
	if string(out.Data) != `{"TP53":{}}` {
		t.Errorf("data = %s", out.Data)
	}
	if out.Duration < 0 {
		t.Errorf("duration = %v", out.Duration)
	}

	var decoded map[string]any
	if err := json.Unmarshal(gotArgs, &decoded); err != nil {
		t.Fatalf("skill received non-JSON args: %v", err)
	}
	if decoded["disease"] != "Glioblastoma" {
		t.Errorf("args = %v", decoded)
	}
}

func TestInvoke_SkillError(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubSkill{
		name: GatherBottomUp,
		execute: func(context.Context, json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("omics screen: connection refused")
		},
	})

	d := NewDispatcher(r, log.Nop())
	out := d.Invoke(context.Background(), GatherBottomUp, nil)

	if out.Status != StatusError {
		t.Fatalf("status = %s, want error", out.Status)
	}
	if out.Err != "omics screen: connection refused" {
		t.Errorf("err = %q", out.Err)
	}
	if out.OK() {
		t.Error("OK() = true for error outcome")
	}
}

func TestInvoke_UnknownSkill(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(NewRegistry(), log.Nop())
	out := d.Invoke(context.Background(), Name("summon_demon"), nil)

	if out.Status != StatusNotFound {
		t.Fatalf("status = %s, want not_found", out.Status)
	}
	if out.Err == "" {
		t.Error("expected error message for unknown skill")
	}
}

func TestInvoke_PanicAbsorbed(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubSkill{
		name: VerifyTargets,
		execute: func(context.Context, json.RawMessage) (json.RawMessage, error) {
			panic("nil map write")
		},
	})

	d := NewDispatcher(r, log.Nop())

	// Must not propagate the panic.
	out := d.Invoke(context.Background(), VerifyTargets, map[string]any{"genes": []string{"TP53"}})

	if out.Status != StatusError {
		t.Fatalf("status = %s, want error", out.Status)
	}
	if out.Err == "" || out.Duration == 0 && out.Duration < time.Duration(0) {
		t.Errorf("panic outcome incomplete: %+v", out)
	}
}

func TestArgKeys_Sorted(t *testing.T) {
	t.Parallel()

	keys := argKeys(map[string]any{"genes": 1, "disease": 2, "mode": 3})
	want := []string{"disease", "genes", "mode"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
}
