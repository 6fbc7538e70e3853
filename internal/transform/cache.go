package transform

import (
	"context"
	"encoding/hex"
	"log/slog"

	"golang.org/x/crypto/sha3"
)

// Store persists derived outputs by key.
type Store interface {
	// GetTransform returns the cached output for key and whether it was found.
	GetTransform(ctx context.Context, key string) (string, bool, error)

	// PutTransform stores output under key.
	PutTransform(ctx context.Context, key, output string) error
}

// Cached decorates a Transformer with a persistent Store. Only successful
// outputs are stored; failures always reach the inner transformer again.
// Store errors are logged and otherwise ignored so a broken cache never
// changes what a page looks like.
type Cached struct {
	inner  Transformer
	store  Store
	logger *slog.Logger
}

// NewCached wraps inner with store. A nil logger means slog.Default().
func NewCached(inner Transformer, store Store, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, store: store, logger: logger}
}

// ID returns the identifier of the wrapped transformer.
func (c *Cached) ID() string {
	return IDOf(c.inner)
}

// Transform implements Transformer.
func (c *Cached) Transform(ctx context.Context, source string) (string, error) {
	key := CacheKey(IDOf(c.inner), source)

	out, ok, err := c.store.GetTransform(ctx, key)
	if err != nil {
		c.logger.Warn("transform cache lookup failed", "key", key, "error", err)
	} else if ok {
		c.logger.Debug("transform cache hit", "key", key)
		return out, nil
	}

	out, err = c.inner.Transform(ctx, source)
	if err != nil {
		return "", err
	}

	if err := c.store.PutTransform(ctx, key, out); err != nil {
		c.logger.Warn("transform cache store failed", "key", key, "error", err)
	}
	return out, nil
}

// CacheKey derives the cache key for a transformer identity and source text.
func CacheKey(id, source string) string {
	h := sha3.New256()
	h.Write([]byte(id))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}
