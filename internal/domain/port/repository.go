package port

import (
	"context"
	"time"
)

// QuotaStore is the counter backend used by the daily quota limiter.
// Increment must be atomic at the storage layer.
type QuotaStore interface {
	Increment(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (count int64, found bool, err error)
	SetExpiry(ctx context.Context, key string, ttl time.Duration) error
}
