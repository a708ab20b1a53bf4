package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/pkg/utils/json"
)

// AnswerCacheConfig configures the answer cache.
type AnswerCacheConfig struct {
	// Enabled turns the cache on.
	Enabled bool
	// TTL is the cache entry expiration.
	TTL time.Duration
	// KeyPrefix is the cache key prefix.
	KeyPrefix string
}

// AnswerCache caches generated answers in Redis, keyed by a hash of the
// question. A nil Redis client disables the cache; every method degrades
// to a no-op so an unreachable Redis never fails a request.
type AnswerCache struct {
	redis  *goredis.Client
	config *AnswerCacheConfig
}

// NewAnswerCache creates an answer cache.
func NewAnswerCache(redis *goredis.Client, config *AnswerCacheConfig) *AnswerCache {
	if config == nil {
		config = &AnswerCacheConfig{
			Enabled:   false,
			TTL:       1 * time.Hour,
			KeyPrefix: "docchat:answer:",
		}
	}
	return &AnswerCache{
		redis:  redis,
		config: config,
	}
}

// Enabled reports whether the cache is active.
func (c *AnswerCache) Enabled() bool {
	return c != nil && c.config.Enabled && c.redis != nil
}

func (c *AnswerCache) cacheKey(question string) string {
	hash := sha256.Sum256([]byte(question))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// Get returns the cached answer for a question, or (nil, nil) on a miss.
func (c *AnswerCache) Get(ctx context.Context, question string) (*model.ChatResponse, error) {
	if !c.Enabled() {
		return nil, nil
	}

	key := c.cacheKey(question)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			logger.Debugw("Cache miss", "key", key)
			return nil, nil
		}
		logger.Warnw("Failed to read from cache", "error", err.Error(), "key", key)
		return nil, err
	}

	var result model.ChatResponse
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("Failed to unmarshal cached answer", "error", err.Error(), "key", key)
		// Drop the corrupt entry.
		_ = c.redis.Del(ctx, key).Err()
		return nil, err
	}

	logger.Debugw("Cache hit", "key", key)
	return &result, nil
}

// Set stores an answer for a question.
func (c *AnswerCache) Set(ctx context.Context, question string, result *model.ChatResponse) error {
	if !c.Enabled() {
		return nil
	}

	key := c.cacheKey(question)

	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("Failed to marshal answer for caching", "error", err.Error())
		return err
	}

	if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
		logger.Warnw("Failed to write to cache", "error", err.Error(), "key", key)
		return err
	}

	return nil
}

// Clear removes every cached answer. Called after an index rebuild, since
// cached answers may cite passages that no longer exist.
func (c *AnswerCache) Clear(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("Failed to delete cache key", "error", err.Error(), "key", iter.Val())
		} else {
			deleted++
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warnw("Error during cache scan", "error", err.Error())
		return err
	}

	logger.Infow("Cleared answer cache", "deleted_count", deleted)
	return nil
}

// GetStats returns cache counters.
func (c *AnswerCache) GetStats(ctx context.Context) (map[string]int64, error) {
	if !c.Enabled() {
		return nil, nil
	}

	pattern := c.config.KeyPrefix + "*"
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()

	var keys int64
	for iter.Next(ctx) {
		keys++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return map[string]int64{
		"entries":     keys,
		"ttl_seconds": int64(c.config.TTL.Seconds()),
	}, nil
}
