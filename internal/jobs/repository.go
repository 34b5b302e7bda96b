package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sheetdrop/sheetdrop/pkg/pagination"
	"github.com/sheetdrop/sheetdrop/pkg/repository"
)

const jobColumns = `id, owner_id, status, source_key, result_key, error_kind, error_detail, warnings, attempt_count, created_at, updated_at`

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a PostgreSQL-backed job record store.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "jobs"),
		pagination: pagination,
	}
}

func (r *repo) Create(ctx context.Context, id uuid.UUID, ownerID, sourceKey string) (*ConversionJob, error) {
	q := `INSERT INTO conversion_jobs(id, owner_id, status, source_key)
		VALUES($1, $2, $3, $4)
		RETURNING ` + jobColumns

	job, err := repository.QueryOne(ctx, r.db, q, []any{
		id, ownerID, StatusPendingUpload, sourceKey,
	}, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("job created", "id", job.ID, "owner", ownerID)
	return &job, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*ConversionJob, error) {
	q := `SELECT ` + jobColumns + ` FROM conversion_jobs WHERE id = $1`

	job, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &job, nil
}

func (r *repo) List(ctx context.Context, ownerID string, page pagination.PageRequest, filters Filters) (*pagination.PageResult[ConversionJob], error) {
	page.Normalize(r.pagination)

	where := `WHERE owner_id = $1`
	args := []any{ownerID}
	if filters.Status != nil {
		where += ` AND status = $2`
		args = append(args, *filters.Status)
	}

	var total int
	countQ := `SELECT COUNT(*) FROM conversion_jobs ` + where
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	pageQ := fmt.Sprintf(
		`SELECT %s FROM conversion_jobs %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		jobColumns, where, page.PageSize, page.Offset(),
	)
	items, err := repository.QueryMany(ctx, r.db, pageQ, args, scanJob)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) MarkQueued(ctx context.Context, id uuid.UUID) (*ConversionJob, error) {
	q := `UPDATE conversion_jobs
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + jobColumns

	return r.transition(ctx, id, q, StatusQueued, id, StatusPendingUpload)
}

func (r *repo) Claim(ctx context.Context) (*ConversionJob, error) {
	// SKIP LOCKED keeps concurrent workers from blocking on or double
	// claiming the same row; the status precondition makes the claim a
	// compare-and-swap.
	q := `UPDATE conversion_jobs
		SET status = $1, attempt_count = attempt_count + 1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM conversion_jobs
			WHERE status = $2
			ORDER BY updated_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + jobColumns

	job, err := repository.QueryOne(ctx, r.db, q, []any{StatusProcessing, StatusQueued}, scanJob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoneQueued
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}

	r.logger.Debug("job claimed", "id", job.ID, "attempt", job.AttemptCount)
	return &job, nil
}

func (r *repo) Requeue(ctx context.Context, id uuid.UUID) (*ConversionJob, error) {
	q := `UPDATE conversion_jobs
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + jobColumns

	return r.transition(ctx, id, q, StatusQueued, id, StatusProcessing)
}

func (r *repo) Complete(ctx context.Context, id uuid.UUID, resultKey string, warnings []string) (*ConversionJob, error) {
	encoded, err := encodeWarnings(warnings)
	if err != nil {
		return nil, err
	}

	q := `UPDATE conversion_jobs
		SET status = $1, result_key = $2, warnings = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING ` + jobColumns

	return r.transition(ctx, id, q, StatusCompleted, resultKey, encoded, id, StatusProcessing)
}

func (r *repo) Fail(ctx context.Context, id uuid.UUID, from Status, kind ErrorKind, detail string) (*ConversionJob, error) {
	q := `UPDATE conversion_jobs
		SET status = $1, error_kind = $2, error_detail = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5
		RETURNING ` + jobColumns

	return r.transition(ctx, id, q, StatusFailed, kind, detail, id, from)
}

func (r *repo) SweepStuck(ctx context.Context, ceiling time.Duration, maxAttempts int) (*SweepResult, error) {
	cutoff := time.Now().Add(-ceiling)

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*SweepResult, error) {
		requeueQ := `UPDATE conversion_jobs
			SET status = $1, updated_at = NOW()
			WHERE status = $2 AND updated_at < $3 AND attempt_count < $4`

		res, err := tx.ExecContext(ctx, requeueQ, StatusQueued, StatusProcessing, cutoff, maxAttempts)
		if err != nil {
			return nil, fmt.Errorf("requeue stuck jobs: %w", err)
		}
		requeued, _ := res.RowsAffected()

		failQ := `UPDATE conversion_jobs
			SET status = $1, error_kind = $2, error_detail = $3, updated_at = NOW()
			WHERE status = $4 AND updated_at < $5 AND attempt_count >= $6`

		res, err = tx.ExecContext(ctx, failQ,
			StatusFailed, KindRetriesExhausted,
			"conversion timed out after exhausting all attempts; please try again later",
			StatusProcessing, cutoff, maxAttempts,
		)
		if err != nil {
			return nil, fmt.Errorf("fail stuck jobs: %w", err)
		}
		exhausted, _ := res.RowsAffected()

		return &SweepResult{Requeued: int(requeued), Exhausted: int(exhausted)}, nil
	})
}

// transition runs a status CAS update and disambiguates an empty result
// between a missing record and a precondition mismatch.
func (r *repo) transition(ctx context.Context, id uuid.UUID, q string, args ...any) (*ConversionJob, error) {
	job, err := repository.QueryOne(ctx, r.db, q, args, scanJob)
	if err == nil {
		r.logger.Info("job transitioned", "id", job.ID, "status", job.Status)
		return &job, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition job: %w", err)
	}

	if _, findErr := r.Find(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, ErrInvalidTransition
}

func scanJob(s repository.Scanner) (ConversionJob, error) {
	var (
		j        ConversionJob
		kind     *string
		warnings []byte
	)

	err := s.Scan(
		&j.ID,
		&j.OwnerID,
		&j.Status,
		&j.SourceKey,
		&j.ResultKey,
		&kind,
		&j.ErrorDetail,
		&warnings,
		&j.AttemptCount,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return j, err
	}

	if kind != nil {
		k := ErrorKind(*kind)
		j.ErrorKind = &k
	}
	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &j.Warnings); err != nil {
			return j, fmt.Errorf("decode warnings: %w", err)
		}
	}
	return j, nil
}

func encodeWarnings(warnings []string) ([]byte, error) {
	if warnings == nil {
		warnings = []string{}
	}
	encoded, err := json.Marshal(warnings)
	if err != nil {
		return nil, fmt.Errorf("encode warnings: %w", err)
	}
	return encoded, nil
}
