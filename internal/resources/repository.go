package resources

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

var validStatuses = []string{workflow.StatusAvailable, workflow.StatusAssigned, workflow.StatusUnavailable}

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a Postgres-backed resource repository implementing System.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "resources"),
		pagination: pagination,
	}
}

// Handler returns the HTTP handler for resource management endpoints.
func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) FetchCandidates(ctx context.Context, domain workflow.Domain, filter workflow.CandidateFilter) ([]workflow.Candidate, error) {
	qb := query.NewBuilder(projection, defaultSort).
		WhereEquals("Domain", string(domain)).
		WhereEquals("Status", workflow.StatusAvailable)

	if filter.Kind != "" {
		qb.WhereEquals("Kind", filter.Kind)
	}
	if len(filter.Capabilities) > 0 {
		caps, err := encodeCapabilities(filter.Capabilities)
		if err != nil {
			return nil, fmt.Errorf("encode capability filter: %w", err)
		}
		qb.WhereJSONContains("Capabilities", caps)
	}

	q, args := qb.Build()
	rows, err := repository.QueryMany(ctx, r.db, q, args, scanResource)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	candidates := make([]workflow.Candidate, 0, len(rows))
	for i := range rows {
		candidates = append(candidates, rows[i].Candidate())
	}
	return candidates, nil
}

func (r *repo) FetchUtilization(ctx context.Context, domain workflow.Domain, pool string) (workflow.Utilization, error) {
	const q = `
		SELECT
			COALESCE(SUM(capacity), 0),
			COALESCE(SUM(assigned), 0),
			COALESCE(AVG(load), 0)
		FROM resources
		WHERE domain = $1 AND location = $2`

	var util workflow.Utilization
	util.Pool = pool

	if err := r.db.QueryRowContext(ctx, q, domain, pool).Scan(&util.Capacity, &util.InUse, &util.Load); err != nil {
		return util, fmt.Errorf("fetch utilization: %w", err)
	}
	return util, nil
}

// CommitAssignment performs the optimistic check-and-commit: the update
// only lands if the resource still carries the version captured in the
// assessment snapshot and remains available. A missed update surfaces as
// workflow.ErrCommitConflict so the engine can re-optimize instead of
// double-booking.
func (r *repo) CommitAssignment(ctx context.Context, domain workflow.Domain, a workflow.Assignment, expected workflow.Candidate) error {
	const update = `
		UPDATE resources
		SET assigned = assigned + 1,
			load = LEAST(1, (assigned + 1)::float / GREATEST(capacity, 1)),
			status = CASE WHEN assigned + 1 >= capacity THEN 'assigned' ELSE status END,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND domain = $2 AND version = $3 AND status = 'available'`

	const insert = `
		INSERT INTO assignments(id, domain, requirement_id, resource_id, score)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(ctx, tx, update, a.ResourceID, domain, expected.Version); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return struct{}{}, workflow.ErrCommitConflict
			}
			return struct{}{}, err
		}

		if _, err := tx.ExecContext(ctx, insert, uuid.New(), domain, a.RequirementID, a.ResourceID, a.Score); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		if errors.Is(err, workflow.ErrCommitConflict) {
			r.logger.Warn("assignment commit conflict", "resource_id", a.ResourceID, "requirement_id", a.RequirementID)
			return workflow.ErrCommitConflict
		}
		return fmt.Errorf("commit assignment: %w", err)
	}

	r.logger.Info("assignment committed", "resource_id", a.ResourceID, "requirement_id", a.RequirementID)
	return nil
}

// Release rolls back committed assignments, restoring availability and
// bumping versions so concurrent readers see the change.
func (r *repo) Release(ctx context.Context, domain workflow.Domain, assignments []workflow.Assignment) error {
	const remove = `
		DELETE FROM assignments
		WHERE domain = $1 AND requirement_id = $2 AND resource_id = $3`

	const restore = `
		UPDATE resources
		SET assigned = GREATEST(assigned - 1, 0),
			load = LEAST(1, GREATEST(assigned - 1, 0)::float / GREATEST(capacity, 1)),
			status = CASE WHEN status = 'assigned' THEN 'available' ELSE status END,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND domain = $2`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		for _, a := range assignments {
			if _, err := tx.ExecContext(ctx, remove, domain, a.RequirementID, a.ResourceID); err != nil {
				return struct{}{}, err
			}
			if _, err := tx.ExecContext(ctx, restore, a.ResourceID, domain); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})

	if err != nil {
		return fmt.Errorf("release assignments: %w", err)
	}

	r.logger.Info("assignments released", "count", len(assignments))
	return nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Resource], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Kind", "Location")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count resources: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	rows, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanResource)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}

	result := pagination.NewPageResult(rows, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Resource, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	res, err := repository.QueryOne(ctx, r.db, q, args, scanResource)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &res, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Resource, error) {
	if !cmd.Domain.Valid() {
		return nil, fmt.Errorf("%w: unknown domain %q", ErrInvalidInput, cmd.Domain)
	}
	if cmd.Name == "" || cmd.Kind == "" {
		return nil, fmt.Errorf("%w: name and kind are required", ErrInvalidInput)
	}
	if cmd.Capacity < 1 {
		cmd.Capacity = 1
	}

	caps, err := encodeCapabilities(cmd.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("encode capabilities: %w", err)
	}

	const q = `
		INSERT INTO resources(id, domain, name, kind, status, capabilities, location, capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, domain, name, kind, status, capabilities, location, capacity, assigned, load, version, updated_at`

	args := []any{uuid.New(), cmd.Domain, cmd.Name, cmd.Kind, workflow.StatusAvailable, caps, cmd.Location, cmd.Capacity}

	res, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Resource, error) {
		return repository.QueryOne(ctx, tx, q, args, scanResource)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("resource created", "id", res.ID, "domain", res.Domain, "name", res.Name)
	return &res, nil
}

func (r *repo) SetStatus(ctx context.Context, id uuid.UUID, cmd StatusCommand) (*Resource, error) {
	if !slices.Contains(validStatuses, cmd.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, cmd.Status)
	}

	const q = `
		UPDATE resources
		SET status = $2, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING id, domain, name, kind, status, capabilities, location, capacity, assigned, load, version, updated_at`

	res, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Resource, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, cmd.Status}, scanResource)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("resource status updated", "id", id, "status", cmd.Status)
	return &res, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(ctx, tx, "DELETE FROM resources WHERE id = $1", id); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("resource deleted", "id", id)
	return nil
}
