package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache holds the current active session per teacher so student polling
// does not hit Postgres on every request.
type Cache interface {
	GetActive(ctx context.Context, teacherID string) (*Session, bool)
	SetActive(ctx context.Context, s *Session)
	Invalidate(ctx context.Context, teacherID string)
}

// RedisCache caches active sessions in Redis with a short TTL. All
// operations are best-effort: a Redis failure degrades to DB lookups.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a cache. ttl bounds staleness if an invalidation
// is ever lost.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(teacherID string) string {
	return "classattend:active-session:" + teacherID
}

// GetActive returns the cached active session for a teacher, if any.
func (c *RedisCache) GetActive(ctx context.Context, teacherID string) (*Session, bool) {
	raw, err := c.client.Get(ctx, cacheKey(teacherID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("session cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

// SetActive caches a freshly started session.
func (c *RedisCache) SetActive(ctx context.Context, s *Session) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(s.TeacherID), raw, c.ttl).Err(); err != nil {
		c.logger.Debug("session cache set failed", zap.Error(err))
	}
}

// Invalidate drops the cached session for a teacher.
func (c *RedisCache) Invalidate(ctx context.Context, teacherID string) {
	if err := c.client.Del(ctx, cacheKey(teacherID)).Err(); err != nil {
		c.logger.Debug("session cache invalidate failed", zap.Error(err))
	}
}
