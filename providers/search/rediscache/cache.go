// Package rediscache memoises search results in Redis so repeated research
// runs over the same topic do not pay for identical queries twice.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/leofalp/prosearch/providers/observability"
	"github.com/leofalp/prosearch/providers/search"
)

const (
	DefaultTTL       = 24 * time.Hour
	DefaultKeyPrefix = "prosearch:search:"
)

// Cache is a search.Provider that reads through Redis. Redis failures are
// logged and the call falls through to the wrapped provider.
type Cache struct {
	next      search.Provider
	client    redis.Cmdable
	ttl       time.Duration
	keyPrefix string
	observer  observability.Provider
}

var _ search.Provider = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

func WithTTL(ttl time.Duration) Option { return func(c *Cache) { c.ttl = ttl } }

func WithKeyPrefix(prefix string) Option { return func(c *Cache) { c.keyPrefix = prefix } }

func WithObserver(observer observability.Provider) Option {
	return func(c *Cache) { c.observer = observer }
}

// New wraps next with a Redis cache.
func New(next search.Provider, client redis.Cmdable, opts ...Option) *Cache {
	cache := &Cache{next: next, client: client, ttl: DefaultTTL, keyPrefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Key returns the Redis key for a query. Queries differing only in case or
// surrounding whitespace share a key.
func (c *Cache) Key(query string, count int) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized + "\x00" + strconv.Itoa(count)))
	return c.keyPrefix + hex.EncodeToString(sum[:])
}

func (c *Cache) Search(ctx context.Context, query string, count int) ([]search.Result, error) {
	observer := observability.Resolve(ctx, c.observer)
	key := c.Key(query, count)

	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var results []search.Result
		if decodeErr := json.Unmarshal(cached, &results); decodeErr == nil {
			if observer != nil {
				observer.Counter(observability.MetricSearchCacheHits).Add(ctx, 1)
				observer.Debug(ctx, "search cache hit", observability.String(observability.AttrSearchQuery, query))
			}
			return results, nil
		} else if observer != nil {
			observer.Warn(ctx, "discarding undecodable cache entry", observability.Error(decodeErr))
		}
	case !errors.Is(err, redis.Nil):
		if observer != nil {
			observer.Warn(ctx, "search cache read failed", observability.Error(err))
		}
	}

	if observer != nil {
		observer.Counter(observability.MetricSearchRequests).Add(ctx, 1)
	}
	results, err := c.next.Search(ctx, query, count)
	if err != nil {
		return nil, err
	}
	// empty result sets are not cached: they usually mean a transient upstream problem
	if len(results) == 0 {
		return results, nil
	}
	payload, err := json.Marshal(results)
	if err == nil {
		err = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	if err != nil && observer != nil {
		observer.Warn(ctx, "search cache write failed", observability.Error(err))
	}
	return results, nil
}
