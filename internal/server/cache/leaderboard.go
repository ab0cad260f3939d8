package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"carbontrack/internal/server/database"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardKey = "carbontrack:leaderboard"
	versionKey     = leaderboardKey + ":version"
)

func entriesKey(version int64) string {
	return leaderboardKey + ":" + strconv.FormatInt(version, 10)
}

// LeaderboardCache stores the most recent leaderboard aggregation in Redis.
//
// Entries live under a key derived from a version counter. Invalidate bumps
// the counter, so a write computed before an invalidation lands under a key
// no reader looks at and expires with its TTL.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLeaderboardCache connects to the Redis instance at redisURL.
func NewLeaderboardCache(ctx context.Context, redisURL string, ttl time.Duration) (*LeaderboardCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &LeaderboardCache{client: client, ttl: ttl}, nil
}

// Version returns the current cache version. A missing counter is version 0.
func (c *LeaderboardCache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read leaderboard version: %w", err)
	}
	return v, nil
}

// Get returns the leaderboard cached for the current version along with
// that version. A miss reports ok=false and no error.
func (c *LeaderboardCache) Get(ctx context.Context) (entries []database.LeaderboardEntry, version int64, ok bool, err error) {
	version, err = c.Version(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := c.client.Get(ctx, entriesKey(version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, version, false, fmt.Errorf("failed to read cached leaderboard: %w", err)
	}

	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, version, false, fmt.Errorf("failed to decode cached leaderboard: %w", err)
	}
	return entries, version, true, nil
}

// Set caches entries under version.
func (c *LeaderboardCache) Set(ctx context.Context, version int64, entries []database.LeaderboardEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard: %w", err)
	}
	if err := c.client.Set(ctx, entriesKey(version), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache leaderboard: %w", err)
	}
	return nil
}

// Invalidate retires the current version and drops its entries.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	next, err := c.client.Incr(ctx, versionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate leaderboard: %w", err)
	}
	if err := c.client.Del(ctx, entriesKey(next-1)).Err(); err != nil {
		return fmt.Errorf("failed to drop stale leaderboard: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}
