package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dune-health/internal/health"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisKVStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisKVStore(client)
}

func TestRedisKVStore_Miss(t *testing.T) {
	_, kv := setupTestRedis(t)

	_, err := kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestKVPersister_RoundTrip(t *testing.T) {
	mr, kv := setupTestRedis(t)
	p := NewKVPersister(kv, "", time.Minute)

	v := 54.0
	snap := &health.Snapshot{
		ID:            "abc",
		FetchedAt:     baseNow,
		TodayRHR:      &v,
		Condition:     &health.ConditionScore{Score: 72, Date: health.StartOfDay(baseNow)},
		FailedSources: health.NewSourceSet(health.SourceSleep),
	}
	require.NoError(t, p.SaveSnapshot(context.Background(), snap))
	assert.True(t, mr.Exists(DefaultSnapshotKey))

	got, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.True(t, got.FetchedAt.Equal(baseNow))
	require.NotNil(t, got.TodayRHR)
	assert.Equal(t, 54.0, *got.TodayRHR)
	require.NotNil(t, got.Condition)
	assert.Equal(t, 72, got.Condition.Score)
	assert.True(t, got.FailedSources.Has(health.SourceSleep))
}

func TestKVPersister_Expires(t *testing.T) {
	mr, kv := setupTestRedis(t)
	p := NewKVPersister(kv, "snap", time.Minute)

	require.NoError(t, p.SaveSnapshot(context.Background(), &health.Snapshot{ID: "x", FetchedAt: baseNow}))
	mr.FastForward(2 * time.Minute)

	_, err := p.Load(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestKVPersister_AsCachePersister(t *testing.T) {
	_, kv := setupTestRedis(t)
	mirror := NewKVPersister(kv, "", 0)
	c := newTestCache(&fakeProvider{}, &fakeClock{t: baseNow}, mirror)

	snap := c.FetchSnapshot(context.Background())

	got, err := mirror.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, len(snap.HRVSamples), len(got.HRVSamples))
}
