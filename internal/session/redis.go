package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const userField = "user_id"

// RedisStore keeps each session as a hash plus a list of pending flashes.
// Both keys expire after TTL, refreshed on every write.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a session store backed by client. Every write
// refreshes the TTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{Client: client, TTL: ttl}
}

func (s *RedisStore) sessionKey(id string) string {
	return "session:" + id
}

func (s *RedisStore) flashKey(id string) string {
	return "session:" + id + ":flash"
}

// New stores an anonymous session under a fresh random id.
func (s *RedisStore) New(ctx context.Context) (*Session, error) {
	sess := &Session{ID: newID()}
	key := s.sessionKey(sess.ID)

	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, userField, 0)
		pipe.Expire(ctx, key, s.TTL)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Get returns the session for id, or nil when it is unknown or expired.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.Client.HGet(ctx, s.sessionKey(id), userField).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session user id %q: %w", raw, err)
	}
	return &Session{ID: id, UserID: userID}, nil
}

// SetUser binds the session to a user.
func (s *RedisStore) SetUser(ctx context.Context, id string, userID int64) error {
	key := s.sessionKey(id)
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, userField, userID)
		pipe.Expire(ctx, key, s.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to bind user to session: %w", err)
	}
	return nil
}

// AddFlash queues a message for the next rendered page.
func (s *RedisStore) AddFlash(ctx context.Context, id, message string) error {
	key := s.flashKey(id)
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, message)
		pipe.Expire(ctx, key, s.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add flash: %w", err)
	}
	return nil
}

// PopFlashes returns the queued messages in order and clears them.
func (s *RedisStore) PopFlashes(ctx context.Context, id string) ([]string, error) {
	key := s.flashKey(id)
	var messages *redis.StringSliceCmd
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		messages = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pop flashes: %w", err)
	}
	return messages.Val(), nil
}

// Destroy removes the session and its flashes.
func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := s.Client.Del(ctx, s.sessionKey(id), s.flashKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
