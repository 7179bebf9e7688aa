package cache

import (
	"context"
	"errors"
	"fmt"
	"metadata-negotiator/internal/domain/data"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultKeyPrefix = "negotiator:content:"

	resetScanCount = 500
)

// RedisCachedStorage lets several worker processes share one session cache.
type RedisCachedStorage struct {
	Logger *zap.SugaredLogger
	Client *redis.Client

	prefix string
}

func NewRedisCache(client *redis.Client, logger *zap.SugaredLogger, prefix string) *RedisCachedStorage {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &RedisCachedStorage{
		Client: client,
		Logger: logger,
		prefix: prefix,
	}
}

func (c *RedisCachedStorage) Set(ctx context.Context, key string, entry *data.CacheEntry) error {
	ctx, cancel := context.WithTimeout(ctx, SingleRequestTimeout)
	defer cancel()

	// a single SET is atomic, readers see the old value or the new one
	return c.Client.Set(ctx, c.prefix+key, entry, 0).Err()
}

func (c *RedisCachedStorage) Get(ctx context.Context, key string) (*data.CacheEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, SingleRequestTimeout)
	defer cancel()

	raw, err := c.Client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	entry := new(data.CacheEntry)
	if err := entry.UnmarshalBinary(raw); err != nil {
		c.Logger.Warnw("dropping undecodable cache entry", "key", key, "err", err)
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}

	return entry, nil
}

// Reset removes every key under the prefix.
func (c *RedisCachedStorage) Reset(ctx context.Context) error {
	var cursor uint64
	removed := 0

	for {
		keys, next, err := c.Client.Scan(ctx, cursor, c.prefix+"*", resetScanCount).Result()
		if err != nil {
			return fmt.Errorf("scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			if err := c.Client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete cache keys: %w", err)
			}
			removed += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.Logger.Infow("response cache reset", "removed", removed)
	return nil
}

func (c *RedisCachedStorage) Stop(_ context.Context) error {
	return c.Client.Close()
}
