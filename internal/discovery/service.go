// internal/discovery/service.go
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/oklog/ulid/v2"
)

// ErrEmptyTask is returned by Submit when the task text is blank.
var ErrEmptyTask = xerrors.New("task must not be empty")

// SubmitResult is the outcome of submitting a research task.
type SubmitResult struct {
	ID string
}

// Notifier delivers a completed run's summary somewhere out of band.
type Notifier interface {
	NotifyRun(ctx context.Context, run *Run) error
}

// Service is the business boundary for discovery operations.
type Service struct {
	store          Store
	engine         *Engine
	logger         log.Logger
	metrics        *Metrics
	notifier       Notifier
	defaultDisease string
}

// NewService creates a new discovery service. metrics and notifier may be nil.
func NewService(store Store, engine *Engine, logger log.Logger, metrics *Metrics, notifier Notifier, defaultDisease string) *Service {
	return &Service{
		store:          store,
		engine:         engine,
		logger:         logger,
		metrics:        metrics,
		notifier:       notifier,
		defaultDisease: defaultDisease,
	}
}

// Submit accepts a research task, persists the pending run, and kicks off
// the discovery pipeline asynchronously.
func (s *Service) Submit(ctx context.Context, task, disease string) (*SubmitResult, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		s.countSubmit("rejected")
		return nil, ErrEmptyTask
	}
	disease = strings.TrimSpace(disease)
	if disease == "" {
		disease = s.defaultDisease
	}

	id := ulid.Make().String()
	run := &Run{
		ID:        id,
		Task:      task,
		Disease:   disease,
		Mode:      ModeDiscovery,
		State:     StatePending,
		CreatedAt: time.Now(),
	}

	if err := s.store.Put(ctx, run); err != nil {
		s.countSubmit("error")
		return nil, err
	}

	// kick off async discovery - pass only the ID to avoid sharing the Run pointer.
	go s.runDiscovery(context.WithoutCancel(ctx), id)

	s.countSubmit("accepted")
	return &SubmitResult{ID: id}, nil
}

func (s *Service) countSubmit(result string) {
	if s.metrics != nil {
		s.metrics.SubmitsTotal.WithLabelValues(result).Inc()
	}
}

// Get retrieves a run by ID.
func (s *Service) Get(ctx context.Context, id string) (*Run, bool, error) {
	return s.store.Get(ctx, id)
}

// List returns the most recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*Run, error) {
	return s.store.List(ctx, limit)
}

func (s *Service) runDiscovery(ctx context.Context, id string) {
	L := s.logger.With("run_id", id)

	run, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		L.Error(ctx, err, "failed to fetch run for discovery")
		return
	}

	s.engine.Run(ctx, run)

	if err := s.store.Put(ctx, run); err != nil {
		L.Error(ctx, err, "failed to persist run result")
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRun(ctx, run); err != nil {
			L.Error(ctx, err, "failed to deliver run notification")
		}
	}

	L.Info(ctx, "discovery complete",
		"state", run.State,
		"duration", run.Duration,
		"candidates", len(run.Report),
	)
}
