package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache stores embedding vectors in Redis keyed by a hash of the model
// and input text. Cache errors are logged and swallowed; the provider falls
// back to the backend.
type RedisCache struct {
	client *redis.Client
	model  string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache constructs the cache. A nil client disables caching.
func NewRedisCache(client *redis.Client, model string, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if client == nil {
		return nil
	}
	return &RedisCache{client: client, model: model, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, text string) ([]float32, bool) {
	raw, err := c.client.Get(ctx, c.key(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("embedding cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		return nil, false
	}
	return vector, true
}

func (c *RedisCache) Set(ctx context.Context, text string, vector []float32) {
	raw, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(text), raw, c.ttl).Err(); err != nil {
		c.logger.Debug("embedding cache write failed", zap.Error(err))
	}
}

func (c *RedisCache) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}
