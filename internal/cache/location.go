package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/cityplan/internal/location"
)

const (
	lastFixKey = "location:last_fix"

	// Fixes are kept for a day so stale-cache fallback still has something
	// to return long after the freshness window expires.
	retentionTTL = 24 * time.Hour
)

// LocationCache stores the last known position fix in Redis. Freshness is
// judged by the caller; the cache only bounds retention.
type LocationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocationCache constructs a LocationCache with a 24-hour retention TTL.
func NewLocationCache(client *redis.Client) *LocationCache {
	return &LocationCache{client: client, ttl: retentionTTL}
}

// Get retrieves the last stored fix.
// Returns nil, nil when no fix is stored (not an error).
func (c *LocationCache) Get(ctx context.Context) (*location.Fix, error) {
	val, err := c.client.Get(ctx, lastFixKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for last fix: %w", err)
	}

	var fix location.Fix
	if err := json.Unmarshal([]byte(val), &fix); err != nil {
		return nil, fmt.Errorf("unmarshaling cached fix: %w", err)
	}

	return &fix, nil
}

// Set stores the fix with the configured retention TTL.
func (c *LocationCache) Set(ctx context.Context, fix location.Fix) error {
	b, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("marshaling fix: %w", err)
	}

	if err := c.client.Set(ctx, lastFixKey, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for last fix: %w", err)
	}

	return nil
}

// Clear removes the stored fix.
func (c *LocationCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, lastFixKey).Err(); err != nil {
		return fmt.Errorf("cache delete for last fix: %w", err)
	}
	return nil
}
