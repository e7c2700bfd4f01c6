package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/songtrybe/youtube-metadata-cache/internal/db"
)

// QuotaUsageRepository keeps daily API unit counters in PostgreSQL. Days are
// "2006-01-02" strings in the quota's reset timezone.
type QuotaUsageRepository struct {
	pool *pgxpool.Pool
}

// NewQuotaUsageRepository creates a QuotaUsageRepository.
func NewQuotaUsageRepository(pool *pgxpool.Pool) *QuotaUsageRepository {
	return &QuotaUsageRepository{pool: pool}
}

// Used returns the units recorded for day, zero when nothing was spent.
func (r *QuotaUsageRepository) Used(ctx context.Context, day string) (int, error) {
	query := `SELECT units_used FROM api_quota_usage WHERE day = $1::date`

	var used int
	err := r.pool.QueryRow(ctx, query, day).Scan(&used)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, db.WrapError(err, "get quota usage")
	}

	return used, nil
}

// Increment adds units to day and returns the new total. Negative units give
// back a reservation and do not count as a call.
func (r *QuotaUsageRepository) Increment(ctx context.Context, day string, units int) (int, error) {
	query := `
		INSERT INTO api_quota_usage (day, units_used, calls, updated_at)
		VALUES ($1::date, $2, CASE WHEN $2 > 0 THEN 1 ELSE 0 END, NOW())
		ON CONFLICT (day) DO UPDATE SET
			units_used = api_quota_usage.units_used + EXCLUDED.units_used,
			calls = api_quota_usage.calls + EXCLUDED.calls,
			updated_at = NOW()
		RETURNING units_used
	`

	var used int
	if err := r.pool.QueryRow(ctx, query, day, units).Scan(&used); err != nil {
		return 0, db.WrapError(err, "increment quota usage")
	}

	return used, nil
}
