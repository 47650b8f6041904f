package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestQuotaKey_UsesUTCDate(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	at := time.Date(2026, 10, 18, 3, 0, 0, 0, jakarta) // 2026-10-17 20:00 UTC

	assert.Equal(t, "facebook:daily_posts:2026-10-17", QuotaKey("facebook:daily_posts", at))
}

func TestIncrementDailyPost_FirstSetsExpiry(t *testing.T) {
	store := newFakeQuotaStore()
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	l := NewQuotaLimiter(store, 3, zap.NewNop()).WithClock(fixedClock(now))
	ctx := context.Background()

	n, err := l.IncrementDailyPost(ctx, "ig")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 24*time.Hour, store.expiries["ig:2026-10-17"])

	delete(store.expiries, "ig:2026-10-17")
	for want := int64(2); want <= 5; want++ {
		n, err = l.IncrementDailyPost(ctx, "ig")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	assert.NotContains(t, store.expiries, "ig:2026-10-17", "expiry is only set on the first write")
}

func TestCanPostToday_Limit(t *testing.T) {
	store := newFakeQuotaStore()
	l := NewQuotaLimiter(store, 2, zap.NewNop()).WithClock(fixedClock(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)))
	ctx := context.Background()

	ok, err := l.CanPostToday(ctx, "fb")
	require.NoError(t, err)
	assert.True(t, ok, "missing key counts as zero")

	_, err = l.IncrementDailyPost(ctx, "fb")
	require.NoError(t, err)
	ok, err = l.CanPostToday(ctx, "fb")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = l.IncrementDailyPost(ctx, "fb")
	require.NoError(t, err)
	ok, err = l.CanPostToday(ctx, "fb")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuota_DaysNeverShareCounter(t *testing.T) {
	store := newFakeQuotaStore()
	ctx := context.Background()

	day1 := NewQuotaLimiter(store, 1, zap.NewNop()).WithClock(fixedClock(time.Date(2026, 10, 17, 23, 59, 59, 0, time.UTC)))
	day2 := NewQuotaLimiter(store, 1, zap.NewNop()).WithClock(fixedClock(time.Date(2026, 10, 18, 0, 0, 1, 0, time.UTC)))

	_, err := day1.IncrementDailyPost(ctx, "fb")
	require.NoError(t, err)

	ok, err := day1.CanPostToday(ctx, "fb")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = day2.CanPostToday(ctx, "fb")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := day2.IncrementDailyPost(ctx, "fb")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, store.counts, 2)
}

func TestQuota_StoreErrorsSurface(t *testing.T) {
	store := newFakeQuotaStore()
	store.getErr = errors.New("connection refused")
	l := NewQuotaLimiter(store, 10, zap.NewNop())

	ok, err := l.CanPostToday(context.Background(), "fb")
	require.Error(t, err)
	assert.False(t, ok)

	store.incrErr = errors.New("connection refused")
	_, err = l.IncrementDailyPost(context.Background(), "fb")
	require.Error(t, err)
}

func TestQuota_ExpiryFailureIsSoft(t *testing.T) {
	store := newFakeQuotaStore()
	store.expireErr = errors.New("timeout")
	l := NewQuotaLimiter(store, 10, zap.NewNop())

	n, err := l.IncrementDailyPost(context.Background(), "fb")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestQuota_ConcurrentIncrements(t *testing.T) {
	store := newFakeQuotaStore()
	l := NewQuotaLimiter(store, 100, zap.NewNop()).WithClock(fixedClock(time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)))

	var wg sync.WaitGroup
	seen := make(chan int64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := l.IncrementDailyPost(context.Background(), "fb")
			assert.NoError(t, err)
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int64]bool{}
	for n := range seen {
		unique[n] = true
	}
	assert.Len(t, unique, 50)
	assert.Equal(t, int64(50), store.counts["fb:2026-10-17"])
}
