package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuotaStore keeps daily post counters in the daily_quota table. Expired
// rows read as absent and restart at 1 on the next increment.
type QuotaStore struct {
	pool *pgxpool.Pool
}

func NewQuotaStore(pool *pgxpool.Pool) *QuotaStore {
	return &QuotaStore{pool: pool}
}

func (s *QuotaStore) Increment(ctx context.Context, key string) (int64, error) {
	query := `
		INSERT INTO daily_quota (key, count, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (key) DO UPDATE SET
			count = CASE
				WHEN daily_quota.expires_at IS NOT NULL AND daily_quota.expires_at <= now() THEN 1
				ELSE daily_quota.count + 1
			END,
			expires_at = CASE
				WHEN daily_quota.expires_at IS NOT NULL AND daily_quota.expires_at <= now() THEN NULL
				ELSE daily_quota.expires_at
			END,
			updated_at = now()
		RETURNING count`

	var count int64
	if err := s.pool.QueryRow(ctx, query, key).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment quota %s: %w", key, err)
	}
	return count, nil
}

func (s *QuotaStore) Get(ctx context.Context, key string) (int64, bool, error) {
	query := `
		SELECT count FROM daily_quota
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`

	var count int64
	err := s.pool.QueryRow(ctx, query, key).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get quota %s: %w", key, err)
	}
	return count, true, nil
}

func (s *QuotaStore) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	query := `
		UPDATE daily_quota SET expires_at = now() + make_interval(secs => $2), updated_at = now()
		WHERE key = $1`

	if _, err := s.pool.Exec(ctx, query, key, ttl.Seconds()); err != nil {
		return fmt.Errorf("expire quota %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes counters whose window has passed.
func (s *QuotaStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM daily_quota WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purge expired quota: %w", err)
	}
	return tag.RowsAffected(), nil
}
