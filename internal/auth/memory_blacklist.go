package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryBlacklist keeps revoked token ids in process memory. It backs logout when Redis is
// disabled; entries do not survive a restart and are not shared between replicas.
type MemoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{entries: make(map[string]time.Time), now: time.Now}
}

func (b *MemoryBlacklist) Add(_ context.Context, jti string, exp time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if !exp.After(now) {
		return nil
	}
	for k, e := range b.entries {
		if !e.After(now) {
			delete(b.entries, k)
		}
	}
	b.entries[jti] = exp
	return nil
}

func (b *MemoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.entries[jti]
	return ok && exp.After(b.now()), nil
}
