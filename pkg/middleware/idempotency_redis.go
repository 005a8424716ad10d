package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"coachbook/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	pendingMarker        = "__pending__"
	redisOpTimeout       = 2 * time.Second
)

// releasePending deletes a key only while it still holds the pending marker,
// so a completed response is never dropped by a late Release.
var releasePending = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisIdempotencyStore shares idempotency state between service replicas.
// Redis failures fail open: the request runs as if the key were new.
type RedisIdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
	log        *logger.Logger
}

// NewRedisIdempotencyStore keeps completed responses for ttl. A reservation
// left by a crashed request expires after pendingTTL.
func NewRedisIdempotencyStore(client *redis.Client, ttl, pendingTTL time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:     client,
		ttl:        ttl,
		pendingTTL: pendingTTL,
		log:        log,
	}
}

func (s *RedisIdempotencyStore) Reserve(key string) (*CachedResponse, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	key = idempotencyKeyPrefix + key

	set, err := s.client.SetNX(ctx, key, pendingMarker, s.pendingTTL).Result()
	if err != nil {
		s.log.Warn("Idempotency reserve failed", "key", key, "error", err)
		return nil, true
	}
	if set {
		return nil, true
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		// expired between SETNX and GET
		return nil, true
	case err != nil:
		s.log.Warn("Idempotency lookup failed", "key", key, "error", err)
		return nil, true
	}

	cached, pending, err := decodeCachedResponse(raw)
	if err != nil {
		s.log.Warn("Discarding unreadable idempotency entry", "key", key, "error", err)
		return nil, true
	}
	if pending {
		return nil, false
	}
	return cached, true
}

func (s *RedisIdempotencyStore) Complete(key string, response *CachedResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	response.CreatedAt = time.Now()
	raw, err := json.Marshal(response)
	if err != nil {
		s.log.Error("Failed to encode idempotent response", "error", err)
		return
	}
	if err := s.client.Set(ctx, idempotencyKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		s.log.Warn("Idempotency store failed", "key", key, "error", err)
	}
}

func (s *RedisIdempotencyStore) Release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := releasePending.Run(ctx, s.client, []string{idempotencyKeyPrefix + key}, pendingMarker).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn("Idempotency release failed", "key", key, "error", err)
	}
}

// Stop is a no-op; the client is owned and closed by pkg/client.
func (s *RedisIdempotencyStore) Stop() {}

func decodeCachedResponse(raw []byte) (*CachedResponse, bool, error) {
	if string(raw) == pendingMarker {
		return nil, true, nil
	}
	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false, err
	}
	return &cached, false, nil
}
