package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker is the single-flight guard around a sweep. TryLock reports false
// without blocking when another sweep holds the lock.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// MemoryLock is the default in-process Locker, sufficient when one instance
// runs the sweep.
type MemoryLock struct {
	mu sync.Mutex
}

// NewMemoryLock creates an in-process lock.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{}
}

func (l *MemoryLock) TryLock(ctx context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

func (l *MemoryLock) Unlock(ctx context.Context) error {
	l.mu.Unlock()
	return nil
}

// RedisLock is a Locker backed by a redis SET NX key with a TTL, for
// deployments where several instances could trigger the sweep. The TTL
// bounds how long a crashed holder can block later sweeps.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock creates a redis-backed lock.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	if key == "" {
		key = "billingkit:reminder:sweep"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLock{client: client, key: key, ttl: ttl}
}

func (l *RedisLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, "locked", l.ttl).Result()
}

func (l *RedisLock) Unlock(ctx context.Context) error {
	return l.client.Del(ctx, l.key).Err()
}
