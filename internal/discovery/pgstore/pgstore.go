// internal/discovery/pgstore/pgstore.go

// Package pgstore provides a PostgreSQL implementation of discovery.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/tandem/internal/discovery"
	"github.com/linnemanlabs/tandem/internal/postgres"
)

var tracer = otel.Tracer("github.com/linnemanlabs/tandem/internal/discovery/pgstore")

//go:embed schema.sql
var schema string

// Store persists discovery runs in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL via the traced pool, applies the schema, and
// returns a ready Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const runColumns = `id, task, disease, mode, state, plan, errors, rejected_known,
	report, conclusion, created_at, completed_at, duration_s`

// Get retrieves a run by ID.
func (s *Store) Get(ctx context.Context, id string) (*discovery.Run, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + runColumns + ` FROM discovery_runs WHERE id = $1`
	r, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if r == nil {
		return nil, false, nil
	}
	return r, true, nil
}

// Put inserts or updates a run.
func (s *Store) Put(ctx context.Context, r *discovery.Run) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	planJSON, err := json.Marshal(r.Plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	errorsJSON, err := json.Marshal(r.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	rejectedJSON, err := json.Marshal(r.RejectedKnown)
	if err != nil {
		return fmt.Errorf("marshal rejected_known: %w", err)
	}
	reportJSON, err := json.Marshal(r.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	var completedAt *time.Time
	if !r.CompletedAt.IsZero() {
		completedAt = &r.CompletedAt
	}

	query := `INSERT INTO discovery_runs (
		id, task, disease, mode, state, plan, errors, rejected_known,
		report, conclusion, created_at, completed_at, duration_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (id) DO UPDATE SET
		task           = EXCLUDED.task,
		disease        = EXCLUDED.disease,
		mode           = EXCLUDED.mode,
		state          = EXCLUDED.state,
		plan           = EXCLUDED.plan,
		errors         = EXCLUDED.errors,
		rejected_known = EXCLUDED.rejected_known,
		report         = EXCLUDED.report,
		conclusion     = EXCLUDED.conclusion,
		completed_at   = EXCLUDED.completed_at,
		duration_s     = EXCLUDED.duration_s`

	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Task, r.Disease, string(r.Mode), string(r.State), planJSON, errorsJSON,
		rejectedJSON, reportJSON, r.Conclusion, r.CreatedAt, completedAt, r.Duration,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first. limit <= 0 defaults to 50.
func (s *Store) List(ctx context.Context, limit int) ([]*discovery.Run, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM discovery_runs ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []*discovery.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// scanRun scans a single row into a discovery.Run.
// Returns (nil, nil) when no row is found.
func scanRun(row pgx.Row) (*discovery.Run, error) {
	var (
		r            discovery.Run
		mode         string
		state        string
		planJSON     []byte
		errorsJSON   []byte
		rejectedJSON []byte
		reportJSON   []byte
		completedAt  *time.Time
	)

	err := row.Scan(
		&r.ID, &r.Task, &r.Disease, &mode, &state, &planJSON, &errorsJSON,
		&rejectedJSON, &reportJSON, &r.Conclusion, &r.CreatedAt, &completedAt, &r.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	r.Mode = discovery.Mode(mode)
	r.State = discovery.State(state)

	if completedAt != nil {
		r.CompletedAt = *completedAt
	}

	if err := json.Unmarshal(planJSON, &r.Plan); err != nil {
		return nil, fmt.Errorf("unmarshal plan: %w", err)
	}
	if err := json.Unmarshal(errorsJSON, &r.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if err := json.Unmarshal(rejectedJSON, &r.RejectedKnown); err != nil {
		return nil, fmt.Errorf("unmarshal rejected_known: %w", err)
	}
	if err := json.Unmarshal(reportJSON, &r.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}

	return &r, nil
}
