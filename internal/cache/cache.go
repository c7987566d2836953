package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a Redis-backed JSON cache with per-entry TTL. Dashboard queries
// use it so repeated range requests don't re-scan spend and contact tables.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache around an existing Redis client.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key builds a cache key from an operation name and its parameters.
func Key(op string, params ...string) string {
	return "dash:" + op + ":" + strings.Join(params, ":")
}

// Get unmarshals the cached value for key into dst, or returns ErrMiss.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// Set stores the value under key with the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. Cache errors degrade to computing fresh; they never fail the
// request.
func (c *Cache) GetOrCompute(ctx context.Context, key string, dst interface{}, compute func() (interface{}, error)) error {
	if c != nil {
		if err := c.Get(ctx, key, dst); err == nil {
			return nil
		}
	}

	value, err := compute()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode computed value: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode computed value: %w", err)
	}

	if c != nil {
		// best effort; a dead Redis must not break the dashboard
		_ = c.Set(ctx, key, value)
	}
	return nil
}
