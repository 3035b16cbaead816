package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps challenges in Redis hashes with a TTL slightly beyond
// the challenge expiry. Expiry itself is checked lazily at verify time;
// the TTL is just garbage collection.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a challenge store on the given Redis connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RedisStore{rdb: redis.NewClient(opts)}, nil
}

func challengeKey(userID uint) string {
	return fmt.Sprintf("otp:challenge:%d", userID)
}

// Put overwrites the user's challenge.
func (s *RedisStore) Put(ctx context.Context, userID uint, ch Challenge) error {
	key := challengeKey(userID)

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		"code":       ch.Code,
		"phone":      ch.Phone,
		"expires_at": ch.ExpiresAt.Unix(),
		"attempts":   ch.Attempts,
	})
	pipe.Expire(ctx, key, ChallengeTTL+5*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Get returns the live challenge, or nil when none exists.
func (s *RedisStore) Get(ctx context.Context, userID uint) (*Challenge, error) {
	values, err := s.rdb.HGetAll(ctx, challengeKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	expires, err := strconv.ParseInt(values["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed challenge expiry: %w", err)
	}
	attempts, err := strconv.Atoi(values["attempts"])
	if err != nil {
		return nil, fmt.Errorf("malformed challenge attempts: %w", err)
	}

	return &Challenge{
		Code:      values["code"],
		Phone:     values["phone"],
		ExpiresAt: time.Unix(expires, 0),
		Attempts:  attempts,
	}, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value.
func (s *RedisStore) IncrementAttempts(ctx context.Context, userID uint) (int, error) {
	n, err := s.rdb.HIncrBy(ctx, challengeKey(userID), "attempts", 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempts: %w", err)
	}
	return int(n), nil
}

// Clear removes the user's challenge.
func (s *RedisStore) Clear(ctx context.Context, userID uint) error {
	if err := s.rdb.Del(ctx, challengeKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear challenge: %w", err)
	}
	return nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
