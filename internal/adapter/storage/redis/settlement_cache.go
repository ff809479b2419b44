package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"multi-merchant-settlement/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// SettlementCache implements ports.SettlementCache using Redis.
type SettlementCache struct {
	client *goredis.Client
	prefix string
}

// NewSettlementCache creates a new Redis-backed settlement result cache.
func NewSettlementCache(client *goredis.Client) *SettlementCache {
	return &SettlementCache{
		client: client,
		prefix: settlementPrefix,
	}
}

// Get returns the cached result of a settled order.
// Returns nil, nil if the order has no cached result.
func (c *SettlementCache) Get(ctx context.Context, orderID int64) (*domain.SettlementResult, error) {
	val, err := c.client.Get(ctx, c.key(orderID)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis settlement get: %w", err)
	}

	var result domain.SettlementResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, fmt.Errorf("decode cached settlement: %w", err)
	}
	return &result, nil
}

// Set stores a successful settlement result with TTL.
func (c *SettlementCache) Set(ctx context.Context, result *domain.SettlementResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode settlement: %w", err)
	}
	if err := c.client.Set(ctx, c.key(result.OrderID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis settlement set: %w", err)
	}
	return nil
}

func (c *SettlementCache) key(orderID int64) string {
	return c.prefix + strconv.FormatInt(orderID, 10)
}
