package watchman

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lastRunKey = "watchman:last_run"

// RunCache keeps the most recent run report in Redis so the admin surface
// can show it without re-running the batch. Separate client from the
// Asynq internal connection.
type RunCache struct {
	rdb *redis.Client
}

// NewRunCache creates a run cache on the given Redis connection.
func NewRunCache(redisURL string) (*RunCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RunCache{rdb: redis.NewClient(opts)}, nil
}

// StoreLastRun saves the report with a 48h retention.
func (c *RunCache) StoreLastRun(ctx context.Context, report *RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := c.rdb.Set(ctx, lastRunKey, data, 48*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to cache run report: %w", err)
	}
	return nil
}

// LoadLastRun returns the cached report, or nil when no run happened inside
// the retention window.
func (c *RunCache) LoadLastRun(ctx context.Context) (*RunReport, error) {
	data, err := c.rdb.Get(ctx, lastRunKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run report: %w", err)
	}

	var report RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run report: %w", err)
	}
	return &report, nil
}

// Close closes the Redis client connection.
func (c *RunCache) Close() error {
	return c.rdb.Close()
}
