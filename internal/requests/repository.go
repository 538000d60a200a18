package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/pkg/query"
	"github.com/ashbyfield/ward/pkg/repository"
	"github.com/ashbyfield/ward/workflow"
)

var terminalStatuses = []string{StatusCompleted, StatusFailed, StatusCancelled}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a Postgres-backed request tracking system.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "requests"),
		pagination: pagination,
	}
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Request], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Subject")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count requests: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	rows, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRequest)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}

	result := pagination.NewPageResult(rows, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Request, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	req, err := repository.QueryOne(ctx, r.db, q, args, scanRequest)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &req, nil
}

func (r *repo) Create(ctx context.Context, cmd SubmitCommand) (*Request, error) {
	if !cmd.Domain.Valid() {
		return nil, fmt.Errorf("%w: unknown domain %q", ErrInvalidInput, cmd.Domain)
	}
	if cmd.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	switch cmd.Urgency {
	case workflow.UrgencyEmergency, workflow.UrgencyUrgent, workflow.UrgencyRoutine:
	case "":
		cmd.Urgency = workflow.UrgencyRoutine
	default:
		return nil, fmt.Errorf("%w: unknown urgency %q", ErrInvalidInput, cmd.Urgency)
	}

	attributes, err := encodeMap(cmd.Attributes)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}
	preferences, err := encodeMap(cmd.Preferences)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}

	const q = `
		INSERT INTO allocation_requests(id, domain, urgency, subject, attributes, preferences, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, domain, urgency, subject, attributes, preferences, status, failure_reason, submitted_at, updated_at`

	args := []any{uuid.New(), cmd.Domain, cmd.Urgency, cmd.Subject, attributes, preferences, StatusQueued}

	req, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Request, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRequest)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("request accepted", "id", req.ID, "domain", req.Domain, "urgency", req.Urgency)
	return &req, nil
}

// Resolve records the terminal outcome of the run that consumed a request.
func (r *repo) Resolve(ctx context.Context, id uuid.UUID, status, reason string) (*Request, error) {
	if !slices.Contains(terminalStatuses, status) {
		return nil, fmt.Errorf("%w: %q is not a terminal status", ErrInvalidInput, status)
	}

	const q = `
		UPDATE allocation_requests
		SET status = $2, failure_reason = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, domain, urgency, subject, attributes, preferences, status, failure_reason, submitted_at, updated_at`

	req, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Request, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, status, reason}, scanRequest)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("request resolved", "id", id, "status", status, "reason", reason)
	return &req, nil
}

// ResolveQueued resolves a request only while it is still queued. When the
// run's completion hook resolved the request first, the recorded outcome
// stands and the current row is returned unchanged.
func (r *repo) ResolveQueued(ctx context.Context, id uuid.UUID, status, reason string) (*Request, error) {
	if !slices.Contains(terminalStatuses, status) {
		return nil, fmt.Errorf("%w: %q is not a terminal status", ErrInvalidInput, status)
	}

	const q = `
		UPDATE allocation_requests
		SET status = $2, failure_reason = $3, updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING id, domain, urgency, subject, attributes, preferences, status, failure_reason, submitted_at, updated_at`

	req, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Request, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, status, reason, StatusQueued}, scanRequest)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return r.Find(ctx, id)
	}
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("request resolved", "id", id, "status", status, "reason", reason)
	return &req, nil
}
