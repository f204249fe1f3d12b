package assumptions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores fetched document bodies with their fetch time.
// *store.Store satisfies it.
type Cache interface {
	GetDocument(ctx context.Context, key string) (body []byte, fetchedAt time.Time, ok bool, err error)
	PutDocument(ctx context.Context, key string, body []byte, fetchedAt time.Time) error
}

// RedisCache keeps documents in a Redis hash per key.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the Redis server at addr.
func NewRedisCache(addr string) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisCache{
		client: rdb,
		prefix: "nestegg:assumptions:",
	}
}

// Ping checks the connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// GetDocument implements Cache.
func (r *RedisCache) GetDocument(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	vals, err := r.client.HGetAll(ctx, r.prefix+key).Result()
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("redis hgetall: %w", err)
	}
	body, ok := vals["body"]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	fetchedAt, _ := time.Parse(time.RFC3339Nano, vals["fetched_at"])
	return []byte(body), fetchedAt, true, nil
}

// PutDocument implements Cache.
func (r *RedisCache) PutDocument(ctx context.Context, key string, body []byte, fetchedAt time.Time) error {
	err := r.client.HSet(ctx, r.prefix+key,
		"body", body,
		"fetched_at", fetchedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu   sync.Mutex
	docs map[string]memoryEntry
}

type memoryEntry struct {
	body      []byte
	fetchedAt time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{docs: make(map[string]memoryEntry)}
}

// GetDocument implements Cache.
func (m *MemoryCache) GetDocument(_ context.Context, key string) ([]byte, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.docs[key]
	return e.body, e.fetchedAt, ok, nil
}

// PutDocument implements Cache.
func (m *MemoryCache) PutDocument(_ context.Context, key string, body []byte, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = memoryEntry{body: append([]byte(nil), body...), fetchedAt: fetchedAt}
	return nil
}
