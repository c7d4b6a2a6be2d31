package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrKeyNotFound is returned by a KV when the key holds no value.
var ErrKeyNotFound = errors.New("draft key not found")

// KV is the client-local key/value persistence a Store writes to.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV is an in-process KV. Expiry is left to the Store, which
// enforces the TTL at read time.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// redisExpiryGrace keeps Redis from expiring a record before the Store
// has had the chance to see it expired and purge it itself.
const redisExpiryGrace = time.Hour

// RedisKV stores drafts in Redis so they survive across server-side
// sessions of the same client.
type RedisKV struct {
	client *redis.Client
	prefix string
}

// RedisKVOption configures a RedisKV.
type RedisKVOption func(*RedisKV)

// WithKeyPrefix sets the key prefix for Redis keys.
// Default is "governance".
func WithKeyPrefix(prefix string) RedisKVOption {
	return func(r *RedisKV) {
		r.prefix = prefix
	}
}

// NewRedisKV creates a Redis-backed KV.
func NewRedisKV(client *redis.Client, opts ...RedisKVOption) *RedisKV {
	kv := &RedisKV{client: client, prefix: "governance"}
	for _, opt := range opts {
		opt(kv)
	}
	return kv
}

func (r *RedisKV) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiry := time.Duration(0)
	if ttl > 0 {
		expiry = ttl + redisExpiryGrace
	}
	if err := r.client.Set(ctx, r.key(key), value, expiry).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
