package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/tripsim/internal/simulation"
)

const defaultTTL = time.Hour

// Cache wraps a Redis client and stores simulation records by ID.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache. A non-positive ttl falls back to one hour.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func key(id string) string {
	return "simulation:" + strings.ToLower(strings.TrimSpace(id))
}

// Get retrieves a record from cache.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) Get(ctx context.Context, id string) (*simulation.Record, error) {
	val, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for simulation %s: %w", id, err)
	}

	var rec simulation.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling cached simulation %s: %w", id, err)
	}

	return &rec, nil
}

// Set stores rec under rec.ID with the configured TTL.
func (c *Cache) Set(ctx context.Context, rec *simulation.Record) error {
	if rec == nil {
		return nil
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling simulation %s: %w", rec.ID, err)
	}

	if err := c.client.Set(ctx, key(rec.ID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for simulation %s: %w", rec.ID, err)
	}

	return nil
}

// Delete removes the cached entry for id.
func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("cache delete for simulation %s: %w", id, err)
	}
	return nil
}
