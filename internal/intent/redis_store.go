package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-reservation/internal/clock"
	"ms-reservation/internal/logger"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	clock  clock.Clock
	logger *logger.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, clk clock.Clock, log *logger.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &RedisStore{client: client, ttl: ttl, clock: clk, logger: log}
}

// Save replaces any pending intent of the session. The key expires with the TTL.
func (s *RedisStore) Save(ctx context.Context, sessionKey string, in ResumableIntent) error {
	if sessionKey == "" {
		return ErrNoSession
	}
	if in.Timestamp == 0 {
		in.Timestamp = s.clock.Now().UnixMilli()
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode intent: %w", err)
	}
	if err := s.client.Set(ctx, Key(sessionKey), payload, s.ttl).Err(); err != nil {
		s.logger.Error("INTENT", fmt.Sprintf("Failed to save intent for %s: %v", sessionKey, err))
		return fmt.Errorf("failed to save intent: %w", err)
	}
	s.logger.LogIntent("SAVE", sessionKey, fmt.Sprintf("slug=%s", in.Slug))
	return nil
}

// Consume reads and deletes the pending intent in one GETDEL, so concurrent
// resumes see it at most once. The intent is gone afterwards whatever the
// outcome, including ErrExpired.
func (s *RedisStore) Consume(ctx context.Context, sessionKey string) (ResumableIntent, error) {
	if sessionKey == "" {
		return ResumableIntent{}, ErrNotFound
	}
	raw, err := s.client.GetDel(ctx, Key(sessionKey)).Bytes()
	if err == redis.Nil {
		return ResumableIntent{}, ErrNotFound
	}
	if err != nil {
		return ResumableIntent{}, fmt.Errorf("failed to consume intent: %w", err)
	}

	var in ResumableIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		s.logger.Warn("INTENT", fmt.Sprintf("Discarded malformed intent for %s: %v", sessionKey, err))
		return ResumableIntent{}, ErrNotFound
	}
	if in.Expired(s.clock.Now(), s.ttl) {
		s.logger.LogIntent("EXPIRED", sessionKey, fmt.Sprintf("slug=%s", in.Slug))
		return ResumableIntent{}, ErrExpired
	}
	s.logger.LogIntent("CONSUME", sessionKey, fmt.Sprintf("slug=%s", in.Slug))
	return in, nil
}
