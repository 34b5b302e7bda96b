package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sheetdrop/sheetdrop/internal/config"
	"github.com/sheetdrop/sheetdrop/pkg/repository"
)

const quotaColumns = `owner_id, tier, used_count, period_anchor, created_at, updated_at`

type repo struct {
	db        *sql.DB
	logger    *slog.Logger
	allotment int
	rollover  string
}

// New creates a PostgreSQL-backed quota ledger. The configured period
// policy selects the rollover predicate baked into the reserve statement;
// rollover happens lazily on the next reservation, so no scheduled reset
// job is required.
func New(db *sql.DB, cfg *config.QuotaConfig, logger *slog.Logger) System {
	return &repo{
		db:        db,
		logger:    logger.With("system", "quota"),
		allotment: cfg.FreeAllotment,
		rollover:  rolloverPredicate(cfg.Period),
	}
}

func rolloverPredicate(period string) string {
	switch period {
	case config.QuotaPeriodDaily:
		return `period_anchor < date_trunc('day', NOW())`
	case config.QuotaPeriodMonthly:
		return `period_anchor < date_trunc('month', NOW())`
	default:
		return `FALSE`
	}
}

func (r *repo) CheckAndReserve(ctx context.Context, ownerID string) (*Record, error) {
	if err := r.ensure(ctx, ownerID); err != nil {
		return nil, err
	}

	// One statement performs rollover, the limit check, and the
	// increment, so concurrent reservations for the same owner serialize
	// on the row and at most one wins the final slot.
	q := fmt.Sprintf(`UPDATE quota_records
		SET used_count = CASE
				WHEN tier = $1 THEN used_count
				WHEN %[1]s THEN 1
				ELSE used_count + 1
			END,
			period_anchor = CASE WHEN %[1]s THEN NOW() ELSE period_anchor END,
			updated_at = NOW()
		WHERE owner_id = $2
			AND (tier = $1 OR %[1]s OR used_count < $3)
		RETURNING `+quotaColumns, r.rollover)

	rec, err := repository.QueryOne(ctx, r.db, q, []any{TierPaid, ownerID, r.allotment}, scanRecord)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrExceeded
		}
		return nil, fmt.Errorf("reserve quota: %w", err)
	}

	r.logger.Info("quota reserved", "owner", ownerID, "used", rec.UsedCount, "tier", rec.Tier)
	return &rec, nil
}

func (r *repo) Release(ctx context.Context, ownerID string) error {
	q := `UPDATE quota_records
		SET used_count = GREATEST(used_count - 1, 0), updated_at = NOW()
		WHERE owner_id = $1 AND tier = $2`

	if _, err := r.db.ExecContext(ctx, q, ownerID, TierFree); err != nil {
		return fmt.Errorf("release quota: %w", err)
	}

	r.logger.Info("quota released", "owner", ownerID)
	return nil
}

func (r *repo) Get(ctx context.Context, ownerID string) (*Record, error) {
	if err := r.ensure(ctx, ownerID); err != nil {
		return nil, err
	}

	q := `SELECT ` + quotaColumns + ` FROM quota_records WHERE owner_id = $1`

	rec, err := repository.QueryOne(ctx, r.db, q, []any{ownerID}, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &rec, nil
}

func (r *repo) SetTier(ctx context.Context, ownerID string, tier Tier) (*Record, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}

	if err := r.ensure(ctx, ownerID); err != nil {
		return nil, err
	}

	q := `UPDATE quota_records
		SET tier = $1, updated_at = NOW()
		WHERE owner_id = $2
		RETURNING ` + quotaColumns

	rec, err := repository.QueryOne(ctx, r.db, q, []any{tier, ownerID}, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}

	r.logger.Info("tier updated", "owner", ownerID, "tier", tier)
	return &rec, nil
}

func (r *repo) ensure(ctx context.Context, ownerID string) error {
	q := `INSERT INTO quota_records(owner_id, tier)
		VALUES($1, $2)
		ON CONFLICT (owner_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, q, ownerID, TierFree); err != nil {
		return fmt.Errorf("ensure quota record: %w", err)
	}
	return nil
}

func scanRecord(s repository.Scanner) (Record, error) {
	var rec Record
	err := s.Scan(
		&rec.OwnerID,
		&rec.Tier,
		&rec.UsedCount,
		&rec.PeriodAnchor,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}
