package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"dune-health/internal/health"
)

// ErrCacheMiss is returned when a key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// KVStore is the key-value surface the snapshot mirror needs
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisKVStore is a KVStore backed by go-redis
type RedisKVStore struct {
	client *redis.Client
}

func NewRedisKVStore(client *redis.Client) *RedisKVStore {
	return &RedisKVStore{client: client}
}

func (r *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKVStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// DefaultSnapshotKey is where KVPersister mirrors the latest snapshot
const DefaultSnapshotKey = "dune:snapshot:latest"

// KVPersister mirrors the latest snapshot into a KVStore so other processes
// can read it without touching the provider
type KVPersister struct {
	store KVStore
	key   string
	ttl   time.Duration
}

// NewKVPersister creates a persister. An empty key uses DefaultSnapshotKey;
// a zero ttl keeps the value until overwritten.
func NewKVPersister(store KVStore, key string, ttl time.Duration) *KVPersister {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &KVPersister{store: store, key: key, ttl: ttl}
}

// SaveSnapshot overwrites the mirrored snapshot
func (p *KVPersister) SaveSnapshot(ctx context.Context, snap *health.Snapshot) error {
	payload, err := health.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return p.store.Set(ctx, p.key, string(payload), p.ttl)
}

// Load returns the mirrored snapshot, or ErrCacheMiss
func (p *KVPersister) Load(ctx context.Context) (*health.Snapshot, error) {
	raw, err := p.store.Get(ctx, p.key)
	if err != nil {
		return nil, err
	}
	return health.DecodeSnapshot([]byte(raw))
}
