package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"multi-merchant-settlement/internal/core/domain"
)

// LockStore is a process-local ports.LockStore.
type LockStore struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

func NewLockStore() *LockStore {
	return &LockStore{held: make(map[string]time.Time), clock: time.Now}
}

func (l *LockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return false, nil
	}
	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *LockStore) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type cachedResult struct {
	result  domain.SettlementResult
	expires time.Time
}

// SettlementCache is a process-local ports.SettlementCache.
type SettlementCache struct {
	mu      sync.RWMutex
	results map[string]cachedResult
}

func NewSettlementCache() *SettlementCache {
	return &SettlementCache{results: make(map[string]cachedResult)}
}

func (c *SettlementCache) Get(ctx context.Context, orderID int64) (*domain.SettlementResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.results[strconv.FormatInt(orderID, 10)]
	if !ok || time.Now().After(entry.expires) {
		return nil, nil
	}
	res := entry.result
	return &res, nil
}

func (c *SettlementCache) Set(ctx context.Context, result *domain.SettlementResult, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[strconv.FormatInt(result.OrderID, 10)] = cachedResult{result: *result, expires: time.Now().Add(ttl)}
	return nil
}
