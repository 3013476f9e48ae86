// internal/discovery/memstore/memstore_test.go
package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/linnemanlabs/tandem/internal/discovery"
)

func TestPutAndGet(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	run := &discovery.Run{
		ID:        "01JRUN1",
		Task:      "find novel targets",
		Disease:   "Glioblastoma",
		State:     discovery.StatePending,
		CreatedAt: time.Now(),
	}
	if err := s.Put(ctx, run); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, "01JRUN1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Task != run.Task || got.State != run.State {
		t.Errorf("got %+v, want %+v", got, run)
	}

	// Mutating the returned copy must not leak into the store.
	got.State = discovery.StateReported
	again, _, _ := s.Get(ctx, "01JRUN1")
	if again.State != discovery.StatePending {
		t.Errorf("store mutated through a returned copy: %s", again.State)
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	s := New()

	got, ok, err := s.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || got != nil {
		t.Errorf("got %+v ok=%v, want miss", got, ok)
	}
}

func TestPutOverwrites(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	run := &discovery.Run{ID: "01JRUN1", State: discovery.StatePending, CreatedAt: time.Now()}
	if err := s.Put(ctx, run); err != nil {
		t.Fatalf("Put: %v", err)
	}
	run.State = discovery.StateReported
	run.Conclusion = "3 candidates ranked"
	if err := s.Put(ctx, run); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, _, _ := s.Get(ctx, "01JRUN1")
	if got.State != discovery.StateReported || got.Conclusion == "" {
		t.Errorf("got %+v", got)
	}
}

func TestList(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"01JAAA", "01JBBB", "01JCCC"} {
		run := &discovery.Run{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.Put(ctx, run); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	// Same timestamp as 01JCCC; higher ID wins the tie.
	if err := s.Put(ctx, &discovery.Run{ID: "01JDDD", CreatedAt: base.Add(2 * time.Second)}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	runs, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"01JDDD", "01JCCC", "01JBBB", "01JAAA"}
	if len(runs) != len(want) {
		t.Fatalf("len = %d, want %d", len(runs), len(want))
	}
	for i, w := range want {
		if runs[i].ID != w {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].ID, w)
		}
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "01JDDD" || limited[1].ID != "01JCCC" {
		t.Errorf("limited = %v", limited)
	}
}
