package render

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/phuslu/log"
)

// Cache stores rendered images by key. Failures are misses; a cache never fails a render.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, img []byte)
}

type cacheEntry struct {
	createdAt time.Time
	image     []byte
}

// MemoryCache is a process-local cache with a fixed TTL.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: map[string]cacheEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.createdAt.Add(c.ttl)) {
		delete(c.entries, key)
		return nil, false
	}
	img := make([]byte, len(entry.image))
	copy(img, entry.image)
	return img, true
}

func (c *MemoryCache) Set(_ context.Context, key string, img []byte) {
	cp := make([]byte, len(img))
	copy(cp, img)
	c.mu.Lock()
	c.entries[key] = cacheEntry{createdAt: c.now(), image: cp}
	c.mu.Unlock()
}

// RedisCache shares rendered images between bot replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl:    ttl,
		prefix: "charts:",
	}
}

func (c *RedisCache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	img, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("cache: redis get failed")
		}
		return nil, false
	}
	return img, true
}

func (c *RedisCache) Set(ctx context.Context, key string, img []byte) {
	if err := c.client.Set(ctx, c.prefix+key, img, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: redis set failed")
	}
}
