package application

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
)

// ReminderLedger records which (task, due date) occurrences were reminded.
// Claim is atomic: exactly one caller gets true for an occurrence until it is
// released or expires.
type ReminderLedger interface {
	Claim(ctx context.Context, taskID string, due time.Time) (bool, error)
	Release(ctx context.Context, taskID string, due time.Time) error
}

// ledgerRetention keeps a claim until well after the due date has passed.
const ledgerRetention = 72 * time.Hour

func ledgerKey(prefix, taskID string, due time.Time) string {
	return prefix + taskID + ":" + due.Format(entity.DateLayout)
}

func claimExpiry(now, due time.Time) time.Duration {
	ttl := entity.DateOnly(due).Add(ledgerRetention).Sub(now)
	if ttl < time.Hour {
		ttl = time.Hour
	}
	return ttl
}

// RedisReminderLedger stores claims as SET NX keys so several scheduler
// processes share one ledger.
type RedisReminderLedger struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisReminderLedger(rdb *redis.Client) *RedisReminderLedger {
	return &RedisReminderLedger{rdb: rdb, prefix: "reminder:sent:", now: time.Now}
}

func (l *RedisReminderLedger) Claim(ctx context.Context, taskID string, due time.Time) (bool, error) {
	key := ledgerKey(l.prefix, taskID, due)
	return l.rdb.SetNX(ctx, key, l.now().UTC().Format(time.RFC3339), claimExpiry(l.now(), due)).Result()
}

func (l *RedisReminderLedger) Release(ctx context.Context, taskID string, due time.Time) error {
	return l.rdb.Del(ctx, ledgerKey(l.prefix, taskID, due)).Err()
}

// MemoryReminderLedger is the single-process ledger used without Redis.
type MemoryReminderLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryReminderLedger() *MemoryReminderLedger {
	return &MemoryReminderLedger{entries: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryReminderLedger) Claim(_ context.Context, taskID string, due time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.entries {
		if now.After(exp) {
			delete(l.entries, k)
		}
	}
	key := ledgerKey("", taskID, due)
	if _, ok := l.entries[key]; ok {
		return false, nil
	}
	l.entries[key] = now.Add(claimExpiry(now, due))
	return true, nil
}

func (l *MemoryReminderLedger) Release(_ context.Context, taskID string, due time.Time) error {
	l.mu.Lock()
	delete(l.entries, ledgerKey("", taskID, due))
	l.mu.Unlock()
	return nil
}
