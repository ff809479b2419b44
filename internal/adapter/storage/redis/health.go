package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck implements ports.HealthChecker for Redis. It performs a write
// round trip: a read-only replica answers PING but cannot hold checkout
// locks or sync claims.
type HealthCheck struct {
	client *goredis.Client
}

// NewHealthCheck creates a Redis health checker.
func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping writes and reads back a short-lived probe key.
func (h *HealthCheck) Ping(ctx context.Context) error {
	probe := time.Now().UTC().Format(time.RFC3339Nano)
	if err := h.client.Set(ctx, healthKey, probe, 10*time.Second).Err(); err != nil {
		return fmt.Errorf("redis write probe: %w", err)
	}
	got, err := h.client.Get(ctx, healthKey).Result()
	if err != nil {
		return fmt.Errorf("redis read probe: %w", err)
	}
	if got != probe {
		return fmt.Errorf("redis read probe: got %q", got)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "redis"
}
