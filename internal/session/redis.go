// ABOUTME: Redis-backed session store, the production driver
// ABOUTME: JSON values under a payday:session: prefix with TTL refresh on read

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Redis key prefix for sessions
	sessionKeyPrefix = "payday:session:"
	// Default TTL for session keys (24 hours)
	defaultTTL = 24 * time.Hour
)

// RedisStore implements Store using Redis.
// Sessions are stored as JSON values with a TTL so abandoned dialogues
// expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-based session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Get implements Store.
// Returns (nil, nil) if the session is not found (not an error).
// Refreshes TTL on every read so an active dialogue does not expire mid-step.
func (s *RedisStore) Get(ctx context.Context, userID int64) (*Session, error) {
	key := s.key(userID)
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	// Refresh TTL on read
	_ = s.client.Expire(ctx, key, s.ttl).Err()

	return &sess, nil
}

// Set implements Store.
// Stamps CreatedAt on first write and UpdatedAt on every write, then
// upserts the JSON value with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, sess *Session) error {
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	val, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(sess.UserID), val, s.ttl).Err(); err != nil {
		return fmt.Errorf("setting session: %w", err)
	}
	return nil
}

// Delete implements Store. Deleting a missing session is not an error.
func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// key constructs the Redis key for a user ID.
func (s *RedisStore) key(userID int64) string {
	return sessionKeyPrefix + strconv.FormatInt(userID, 10)
}
