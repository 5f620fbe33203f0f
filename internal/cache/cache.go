// Package cache keeps computed map responses in Redis. A nil *Cache is a
// valid, disabled cache: reads miss and writes are dropped.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/metrics"
)

const (
	KeyPrefix = "clientmap:"

	// SlotsGeneration is bumped whenever slots or services change.
	SlotsGeneration = "slots"

	opTimeout = 500 * time.Millisecond
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// New connects to Redis and pings it. It returns nil, nil when no address is
// configured.
func New(ctx context.Context, opts Options, log *zap.Logger) (*Cache, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.TTL, log), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{client: client, ttl: ttl, log: log}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// GetJSON decodes the value at key into dst and reports whether it was found.
// Redis failures count as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.IncCacheLookup(metrics.CacheMiss)
		return false
	}
	if err != nil {
		metrics.IncCacheLookup(metrics.CacheError)
		c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.IncCacheLookup(metrics.CacheError)
		c.log.Warn("cache entry is not valid JSON", zap.String("key", key), zap.Error(err))
		return false
	}
	metrics.IncCacheLookup(metrics.CacheHit)
	return true
}

// SetJSON stores v at key with the cache TTL. Failures are logged only.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache value not encodable", zap.String("key", key), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.client.Set(ctx, KeyPrefix+key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Generation returns the current value of a named counter, 0 when unset.
// Keys that embed a generation are invalidated by Bump.
func (c *Cache) Generation(ctx context.Context, name string) int64 {
	if c == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	n, err := c.client.Get(ctx, KeyPrefix+"gen:"+name).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn("cache generation read failed", zap.String("name", name), zap.Error(err))
	}
	return n
}

// Bump advances a named generation counter.
func (c *Cache) Bump(ctx context.Context, name string) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.client.Incr(ctx, KeyPrefix+"gen:"+name).Err(); err != nil {
		c.log.Warn("cache generation bump failed", zap.String("name", name), zap.Error(err))
	}
}

// Fingerprint hashes parts into a short stable key segment.
func Fingerprint(parts ...string) string {
	h := xxhash.New()
	for _, p := range parts {
		h.WriteString(p)
		h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 36)
}
