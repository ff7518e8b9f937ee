package rates

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Cache хранит курсы ограниченное время.
type Cache interface {
	Get(ctx context.Context, code string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, code string, rate decimal.Decimal, ttl time.Duration) error
}

type memEntry struct {
	rate    decimal.Decimal
	expires time.Time
}

// MemoryCache: кэш курсов внутри процесса.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]memEntry{}, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, code string) (decimal.Decimal, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	if !ok || !c.now().Before(e.expires) {
		return decimal.Zero, false, nil
	}
	return e.rate, true, nil
}

func (c *MemoryCache) Set(_ context.Context, code string, rate decimal.Decimal, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[code] = memEntry{rate: rate, expires: c.now().Add(ttl)}
	return nil
}

// RedisCache: общий для нескольких экземпляров кэш курсов.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func redisKey(code string) string { return "rates:usd:" + code }

func (c *RedisCache) Get(ctx context.Context, code string) (decimal.Decimal, bool, error) {
	raw, err := c.client.Get(ctx, redisKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, err
	}
	return rate, true, nil
}

func (c *RedisCache) Set(ctx context.Context, code string, rate decimal.Decimal, ttl time.Duration) error {
	return c.client.Set(ctx, redisKey(code), rate.String(), ttl).Err()
}
