package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/pkg/query"
	"github.com/ashbyfield/ward/pkg/repository"
	"github.com/ashbyfield/ward/workflow"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a Postgres-backed run audit store.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "runs"),
		pagination: pagination,
	}
}

// RecordRun persists a terminal run record.
func (r *repo) RecordRun(ctx context.Context, run workflow.Run) error {
	plan, err := json.Marshal(run.Plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	log, err := json.Marshal(run.Log)
	if err != nil {
		return fmt.Errorf("encode log: %w", err)
	}

	const q = `
		INSERT INTO workflow_runs(id, request_id, domain, state, status, iterations, plan, log, failure_reason, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	args := []any{
		run.ID, run.RequestID, run.Domain, run.State, run.Status,
		run.Iterations, plan, log, run.FailureReason, run.StartedAt, run.CompletedAt,
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		_, execErr := tx.ExecContext(ctx, q, args...)
		return struct{}{}, execErr
	})
	if err != nil {
		return fmt.Errorf("record run: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}

	r.logger.Info("run recorded", "id", run.ID, "request_id", run.RequestID, "status", run.Status)
	return nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[workflow.Run], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	rows, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	result := pagination.NewPageResult(rows, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*workflow.Run, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	run, err := repository.QueryOne(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

// FindByRequest returns every run recorded for a request, newest first.
func (r *repo) FindByRequest(ctx context.Context, requestID uuid.UUID) ([]workflow.Run, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("RequestID", requestID).
		Build()

	runs, err := repository.QueryMany(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query runs for request: %w", err)
	}
	return runs, nil
}
