package calls

import (
	"context"
	"sync"
	"time"

	"healthmate/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Limiter guards the one-live-stream-per-call rule.
type Limiter interface {
	Acquire(ctx context.Context, callID string) (bool, error)
	Refresh(ctx context.Context, callID string) error
	Release(ctx context.Context, callID string) error
}

const slotKeyPrefix = "healthmate:call_slot:"

// RedisLimiter holds call slots in Redis so the rule spans replicas.
type RedisLimiter struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLimiter(rdb *redis.Client, ttl time.Duration) *RedisLimiter {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLimiter{rdb: rdb, ttl: ttl}
}

func (l *RedisLimiter) Acquire(ctx context.Context, callID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, slotKeyPrefix+callID, 1, l.ttl)
}

func (l *RedisLimiter) Refresh(ctx context.Context, callID string) error {
	return utils.RefreshConcurrencyCap(ctx, l.rdb, slotKeyPrefix+callID, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, callID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, slotKeyPrefix+callID)
}

// MemoryLimiter holds call slots in process memory.
type MemoryLimiter struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{held: map[string]struct{}{}}
}

func (l *MemoryLimiter) Acquire(ctx context.Context, callID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[callID]; ok {
		return false, nil
	}
	l.held[callID] = struct{}{}
	return true, nil
}

func (l *MemoryLimiter) Refresh(ctx context.Context, callID string) error { return nil }

func (l *MemoryLimiter) Release(ctx context.Context, callID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, callID)
	return nil
}
