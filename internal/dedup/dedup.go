// Package dedup provides an optional, Redis-backed cross-process cache of
// visited state digests, so multiple crdtcheck workers exploring the same
// topology from different hosts can skip states another worker already
// expanded instead of redoing the work.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache records which state digests have already been visited, backed by a
// Redis SET keyed per run.
type Cache struct {
	client *redis.Client
	runKey string
	ttl    time.Duration
}

// Config describes how to reach the shared Redis instance.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// RunID scopes the dedup set to one exploration run so unrelated runs
	// sharing the same Redis instance never collide.
	RunID string
	// TTL expires the run's dedup set after it finishes; zero means never.
	TTL time.Duration
}

// New connects to Redis and returns a Cache scoped to cfg.RunID.
func New(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("dedup: connect to redis: %w", err)
	}
	return &Cache{
		client: client,
		runKey: "crdtcheck:dedup:" + cfg.RunID,
		ttl:    cfg.TTL,
	}, nil
}

// MarkVisited records digest as visited. It returns true if digest was newly
// added (i.e. this worker is the one that should expand it), false if some
// worker already claimed it.
func (c *Cache) MarkVisited(ctx context.Context, digest [32]byte) (bool, error) {
	added, err := c.client.SAdd(ctx, c.runKey, digest[:]).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: mark visited: %w", err)
	}
	if c.ttl > 0 {
		c.client.Expire(ctx, c.runKey, c.ttl)
	}
	return added == 1, nil
}

// Count returns the number of distinct digests recorded for this run.
func (c *Cache) Count(ctx context.Context) (int64, error) {
	n, err := c.client.SCard(ctx, c.runKey).Result()
	if err != nil {
		return 0, fmt.Errorf("dedup: count: %w", err)
	}
	return n, nil
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
