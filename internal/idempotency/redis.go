package idempotency

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DialRedis parses url, connects and pings. An empty url returns nil so
// callers fall back to the in-memory cache.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
