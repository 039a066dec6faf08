package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by a Cache when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores serialized geocoding results.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps a go-redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns ErrCacheMiss for absent keys.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedGeocoder is a read-through cache in front of another Geocoder.
// Empty and failed lookups are never cached.
type CachedGeocoder struct {
	next   Geocoder
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGeocoder creates a CachedGeocoder.
func NewCachedGeocoder(next Geocoder, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Forward serves from cache when possible.
func (g *CachedGeocoder) Forward(ctx context.Context, text string) ([]geo.AddressCandidate, error) {
	key := forwardKey(text)

	var cached []geo.AddressCandidate
	if g.load(ctx, key, &cached) {
		return cached, nil
	}

	candidates, err := g.next.Forward(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		g.store(ctx, key, candidates)
	}
	return candidates, nil
}

// Reverse serves from cache when possible. Coordinates are keyed at 5 decimals (about a meter).
func (g *CachedGeocoder) Reverse(ctx context.Context, c geo.Coordinate) (geo.AddressCandidate, error) {
	key := fmt.Sprintf("geocode:rev:%.5f,%.5f", c.Lat, c.Lon)

	var cached geo.AddressCandidate
	if g.load(ctx, key, &cached) {
		return cached, nil
	}

	cand, err := g.next.Reverse(ctx, c)
	if err != nil {
		return geo.AddressCandidate{}, err
	}
	g.store(ctx, key, cand)
	return cand, nil
}

func (g *CachedGeocoder) load(ctx context.Context, key string, out interface{}) bool {
	b, err := g.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			g.logger.Warn("geocode cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		g.logger.Warn("geocode cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (g *CachedGeocoder) store(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, b, g.ttl); err != nil {
		g.logger.Warn("geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func forwardKey(text string) string {
	return "geocode:fwd:" + strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
