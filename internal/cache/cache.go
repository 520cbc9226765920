// Package cache stores encoded extraction results in Redis.
//
// The cache is optional. A nil *Cache, or one whose startup ping failed,
// behaves as an always-empty cache so callers never branch on it.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ironsheep/stamp-tools-mcp/internal/config"
)

// KeyPrefix starts every cache key.
const KeyPrefix = "stamp:"

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis when cfg.Enabled is set. A failed ping logs a
// warning and returns a disabled cache instead of an error.
func New(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{ttl: cfg.TTL, logger: logger}
	if !cfg.Enabled {
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, result cache disabled",
			zap.String("addr", cfg.Addr),
			zap.Error(err),
		)
		_ = client.Close()
		return c
	}

	logger.Info("redis result cache enabled",
		zap.String("addr", cfg.Addr),
		zap.Duration("ttl", cfg.TTL),
	)
	c.client = client
	return c
}

// Enabled reports whether results are actually stored.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Key builds the cache key for an image and a request fingerprint.
func Key(image []byte, fingerprint string) string {
	return KeyPrefix + BytesMD5(image) + ":" + ShortHash(fingerprint)
}

// BytesMD5 returns the hex MD5 digest of data.
func BytesMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first 8 hex digits of the MD5 of s.
func ShortHash(s string) string {
	return BytesMD5([]byte(s))[:8]
}

// Get loads key into dest. A miss returns (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value as JSON under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
