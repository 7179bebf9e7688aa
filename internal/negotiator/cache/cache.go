package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"metadata-negotiator/internal/domain/data"
	"time"
)

const SingleRequestTimeout = 5 * time.Second

var (
	ErrCacheMiss = errors.New("cache miss")
)

// CachedStorage memoizes classified responses for one evaluation session.
// Implementations must never expose a partially written entry.
type CachedStorage interface {
	Get(ctx context.Context, key string) (*data.CacheEntry, error)
	Set(ctx context.Context, key string, entry *data.CacheEntry) error
	Reset(ctx context.Context) error
}

// Key identifies a response by the URL it finally came from and the content type the server declared.
func Key(finalURL, contentType string) string {
	sum := sha256.Sum256([]byte(finalURL + "\n" + contentType))
	return hex.EncodeToString(sum[:])
}
