package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/regi/internal/config"
	taxdomain "github.com/smallbiznis/regi/internal/taxrate/domain"
)

const (
	// DefaultScheduleTTL bounds staleness on nodes that miss an
	// invalidation (memory impl, or redis hiccups).
	DefaultScheduleTTL = 5 * time.Minute

	scheduleKey = "regi:tax:schedule"
)

// TaxScheduleCache stores the hot-path tax window snapshot consulted on
// every sale. Replacing the schedule invalidates it.
type TaxScheduleCache interface {
	Get(ctx context.Context) ([]taxdomain.TaxRate, bool, error)
	Set(ctx context.Context, windows []taxdomain.TaxRate, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type memoryScheduleCache struct {
	windows Cache[string, []taxdomain.TaxRate]
}

// NewMemoryTaxScheduleCache returns a process-local snapshot cache.
// Invalidation does not propagate across instances; the TTL bounds the
// window of staleness.
func NewMemoryTaxScheduleCache() TaxScheduleCache {
	return &memoryScheduleCache{windows: NewTTLCache[string, []taxdomain.TaxRate]()}
}

func (c *memoryScheduleCache) Get(_ context.Context) ([]taxdomain.TaxRate, bool, error) {
	windows, ok := c.windows.Get(scheduleKey)
	return windows, ok, nil
}

func (c *memoryScheduleCache) Set(_ context.Context, windows []taxdomain.TaxRate, ttl time.Duration) error {
	if len(windows) == 0 {
		return nil
	}
	c.windows.Set(scheduleKey, windows, ttl)
	return nil
}

func (c *memoryScheduleCache) Invalidate(_ context.Context) error {
	c.windows.Delete(scheduleKey)
	return nil
}

type redisScheduleCache struct {
	client *redis.Client
}

// NewRedisTaxScheduleCache returns a shared snapshot cache so all
// instances see a replacement at once.
func NewRedisTaxScheduleCache(addr, password string, db int) TaxScheduleCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisScheduleCache{client: client}
}

func (c *redisScheduleCache) Get(ctx context.Context) ([]taxdomain.TaxRate, bool, error) {
	val, err := c.client.Get(ctx, scheduleKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var windows []taxdomain.TaxRate
	if err := json.Unmarshal([]byte(val), &windows); err != nil {
		return nil, false, err
	}
	return windows, true, nil
}

func (c *redisScheduleCache) Set(ctx context.Context, windows []taxdomain.TaxRate, ttl time.Duration) error {
	if len(windows) == 0 {
		return nil
	}
	payload, err := json.Marshal(windows)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKey, payload, ttl).Err()
}

func (c *redisScheduleCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, scheduleKey).Err()
}

// NewTaxScheduleCache picks the redis cache when an endpoint is
// configured, the process-local one otherwise.
func NewTaxScheduleCache(cfg config.Config) TaxScheduleCache {
	if cfg.RedisEnabled() {
		return NewRedisTaxScheduleCache(strings.TrimSpace(cfg.RedisAddr), strings.TrimSpace(cfg.RedisPassword), cfg.RedisDB)
	}
	return NewMemoryTaxScheduleCache()
}
