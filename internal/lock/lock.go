package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/regi/internal/config"
)

const (
	keyTaxScheduleLock = "regi:tax:schedule:lock"

	defaultScheduleLockTTL = 30 * time.Second
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker holds redis-backed advisory locks. Tokens prove ownership so a
// crashed holder cannot be released by another instance.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{
		client: client,
		script: redis.NewScript(releaseScript),
	}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}

// ScheduleGuard serializes tax schedule replacement across instances.
// Without redis configured every acquisition succeeds and single-node
// deployments rely on the database transaction alone.
type ScheduleGuard struct {
	enabled bool
	locker  *Locker
	ttl     time.Duration
}

func NewScheduleGuard(cfg config.Config) *ScheduleGuard {
	if !cfg.RedisEnabled() {
		return &ScheduleGuard{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.RedisAddr),
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &ScheduleGuard{
		enabled: true,
		locker:  NewLocker(client),
		ttl:     defaultScheduleLockTTL,
	}
}

func (g *ScheduleGuard) Enabled() bool {
	return g != nil && g.enabled
}

// Acquire returns a release token. When the guard is disabled the lock
// is granted unconditionally with an empty token.
func (g *ScheduleGuard) Acquire(ctx context.Context) (string, bool, error) {
	if !g.Enabled() {
		return "", true, nil
	}
	return g.locker.TryLock(ctx, keyTaxScheduleLock, g.ttl)
}

func (g *ScheduleGuard) Release(ctx context.Context, token string) error {
	if !g.Enabled() {
		return nil
	}
	return g.locker.Release(ctx, keyTaxScheduleLock, token)
}
