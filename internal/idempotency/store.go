// Package idempotency remembers the outcome of each processed turn so a
// retried message can be answered without running the operation again.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a turn outcome is replayable.
const DefaultTTL = 24 * time.Hour

const keyPrefix = "turn:"

// Key builds the replay key of a turn. A second mutating call carrying the
// same message id gets the first call's outcome, whatever the tool.
func Key(sessionID, messageID string) string {
	return sessionID + "|" + messageID
}

// MemoryStore is a process-local replay cache backed by go-cache.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore returns a MemoryStore whose entries expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{c: cache.New(ttl, ttl/2)}
}

// Get returns the stored outcome for key.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(keyPrefix + key)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

// Put records value under key with the default expiration.
func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.c.SetDefault(keyPrefix+key, append([]byte(nil), value...))
	return nil
}

// RedisStore shares the replay cache between server instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. The client lifecycle is managed
// by the caller.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get returns the stored outcome for key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Put records value under key with SET and an expiry.
func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, keyPrefix+key, value, r.ttl).Err()
}
