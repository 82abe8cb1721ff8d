// Package redis wraps the Redis client with the coordination primitives the
// subsystem leans on: per-profile locks, the recompute stream, signal dedupe
// keys and the per-profile recompute sequence.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Client wraps the Redis client with logging and common operations
type Client struct {
	rdb    *redis.Client
	logger ectologger.Logger
}

// NewClient creates a new Redis client
func NewClient(cfg Config, logger ectologger.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Infof("Connected to Redis at %s", addr)

	return &Client{
		rdb:    rdb,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Redis returns the underlying Redis client for advanced operations
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// MarkSeen records a signal fingerprint with a TTL and reports whether it was
// new. At-least-once Kafka delivery plus this makes signal handling
// effectively idempotent.
func (c *Client) MarkSeen(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	key := "coldcase:seen:" + fingerprint
	return c.rdb.SetNX(ctx, key, 1, ttl).Result()
}

// BumpSequence increments and returns the profile's recompute sequence.
// Every enqueued signal bumps it; a worker holding an older number abandons
// its job because a newer one recomputes from latest state.
func (c *Client) BumpSequence(ctx context.Context, tenantID, profileID string) (int64, error) {
	return c.rdb.Incr(ctx, sequenceKey(tenantID, profileID)).Result()
}

// CurrentSequence returns the profile's recompute sequence, zero when unset
func (c *Client) CurrentSequence(ctx context.Context, tenantID, profileID string) (int64, error) {
	seq, err := c.rdb.Get(ctx, sequenceKey(tenantID, profileID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return seq, err
}

func sequenceKey(tenantID, profileID string) string {
	return fmt.Sprintf("coldcase:seq:%s:%s", tenantID, profileID)
}
