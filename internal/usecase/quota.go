package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/metrics"
	"go.uber.org/zap"
)

const quotaTTL = 24 * time.Hour

// QuotaLimiter enforces a per-namespace daily post limit.
// Counters are keyed by UTC date and expire 24h after the first post of the day.
type QuotaLimiter struct {
	store  port.QuotaStore
	limit  int64
	now    func() time.Time
	logger *zap.Logger
}

func NewQuotaLimiter(store port.QuotaStore, dailyLimit int64, logger *zap.Logger) *QuotaLimiter {
	return &QuotaLimiter{
		store:  store,
		limit:  dailyLimit,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the time source. Used by tests.
func (l *QuotaLimiter) WithClock(now func() time.Time) *QuotaLimiter {
	l.now = now
	return l
}

func (l *QuotaLimiter) DailyLimit() int64 { return l.limit }

// QuotaKey returns the counter key for namespace on the UTC day of at.
func QuotaKey(namespace string, at time.Time) string {
	return namespace + ":" + at.UTC().Format("2006-01-02")
}

// Count returns today's counter for namespace, 0 when absent.
func (l *QuotaLimiter) Count(ctx context.Context, namespace string) (int64, error) {
	key := QuotaKey(namespace, l.now())
	count, found, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read quota %s: %w", key, err)
	}
	if !found {
		return 0, nil
	}
	return count, nil
}

func (l *QuotaLimiter) CanPostToday(ctx context.Context, namespace string) (bool, error) {
	count, err := l.Count(ctx, namespace)
	if err != nil {
		return false, err
	}
	metrics.QuotaUsed.WithLabelValues(namespace).Set(float64(count))
	return count < l.limit, nil
}

// IncrementDailyPost bumps today's counter and returns the new value.
// A failed expiry on the first write is logged and otherwise ignored.
func (l *QuotaLimiter) IncrementDailyPost(ctx context.Context, namespace string) (int64, error) {
	key := QuotaKey(namespace, l.now())

	count, err := l.store.Increment(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("increment quota %s: %w", key, err)
	}

	if count == 1 {
		if err := l.store.SetExpiry(ctx, key, quotaTTL); err != nil {
			l.logger.Warn("failed to set quota expiry", zap.String("key", key), zap.Error(err))
		} else {
			l.logger.Info("initialized daily counter", zap.String("key", key))
		}
	}

	metrics.QuotaUsed.WithLabelValues(namespace).Set(float64(count))
	l.logger.Debug("daily post count",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int64("limit", l.limit),
	)

	return count, nil
}
