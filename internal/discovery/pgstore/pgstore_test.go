// internal/discovery/pgstore/pgstore_test.go
package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/linnemanlabs/tandem/internal/discovery"
	"github.com/linnemanlabs/tandem/internal/discovery/pgstore"
	"github.com/linnemanlabs/tandem/internal/evidence"
	"github.com/linnemanlabs/tandem/internal/skills"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("TANDEM_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TANDEM_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	s, err := pgstore.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &discovery.Run{
		ID:      "test-put-get-001",
		Task:    "find novel targets for glioblastoma",
		Disease: "Glioblastoma",
		Mode:    discovery.ModeDiscovery,
		State:   discovery.StateReported,
		Plan: []discovery.PlanStep{
			{Skill: skills.GatherBottomUp, Args: map[string]any{"disease": "Glioblastoma"}},
			{Skill: skills.GatherTopDown, Args: map[string]any{"disease": "Glioblastoma"}},
		},
		Errors:        []string{"check_external: upstream timeout"},
		RejectedKnown: []string{"EGFR"},
		Report: []discovery.RankedCandidate{
			{
				Rank:           1,
				Symbol:         "GPR68",
				Tier:           discovery.TierConsensus,
				Score:          16.0,
				Sources:        []evidence.Source{evidence.SourceBottomUp, evidence.SourceTopDown},
				BestOmicsScore: 8.0,
			},
		},
		Conclusion: "1 candidates ranked",
		CreatedAt:  now,
		Duration:   42.5,
	}

	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}

	assertEqual(t, "ID", r.ID, got.ID)
	assertEqual(t, "Task", r.Task, got.Task)
	assertEqual(t, "Disease", r.Disease, got.Disease)
	assertEqual(t, "Mode", string(r.Mode), string(got.Mode))
	assertEqual(t, "State", string(r.State), string(got.State))
	assertEqual(t, "Conclusion", r.Conclusion, got.Conclusion)
	assertEqual(t, "Duration", r.Duration, got.Duration)

	if len(got.Plan) != 2 || got.Plan[0].Skill != skills.GatherBottomUp {
		t.Errorf("Plan mismatch: got %+v", got.Plan)
	}
	if len(got.Errors) != 1 {
		t.Errorf("Errors mismatch: got %v", got.Errors)
	}
	if len(got.RejectedKnown) != 1 || got.RejectedKnown[0] != "EGFR" {
		t.Errorf("RejectedKnown mismatch: got %v", got.RejectedKnown)
	}
	if len(got.Report) != 1 || got.Report[0].Symbol != "GPR68" {
		t.Errorf("Report mismatch: got %+v", got.Report)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "nonexistent-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("Get returned ok=true for nonexistent ID")
	}
}

func TestUpsert(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	r := &discovery.Run{
		ID:        "test-upsert-001",
		Task:      "validate TP53 in breast cancer",
		Disease:   "Breast Cancer",
		Mode:      discovery.ModeValidation,
		State:     discovery.StatePending,
		CreatedAt: now,
	}
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put initial: %v", err)
	}

	r.State = discovery.StateReported
	r.Conclusion = "1 candidates ranked; top: TP53"
	r.CompletedAt = now.Add(time.Minute)
	r.Duration = 60.0

	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	got, ok, err := s.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get after upsert: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false after upsert")
	}

	assertEqual(t, "State", string(discovery.StateReported), string(got.State))
	assertEqual(t, "Conclusion", r.Conclusion, got.Conclusion)
	assertEqual(t, "Duration", 60.0, got.Duration)
	if got.CompletedAt.IsZero() {
		t.Error("CompletedAt is zero after upsert")
	}
}

func TestList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	for i, id := range []string{"test-list-a", "test-list-b", "test-list-c"} {
		r := &discovery.Run{
			ID:        id,
			Task:      "list ordering",
			Disease:   "Glioblastoma",
			Mode:      discovery.ModeDiscovery,
			State:     discovery.StateReported,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	runs, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("List returned %d runs, want 2", len(runs))
	}
	if runs[0].CreatedAt.Before(runs[1].CreatedAt) {
		t.Error("List is not newest-first")
	}
}

func assertEqual[T comparable](t *testing.T, field string, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("%s: got %v, want %v", field, got, want)
	}
}
