package postgres

import (
	"context"
	"errors"
	"fmt"
)

// errSchemaMissing means the database is reachable but `mmsctl migrate`
// has not run against it.
var errSchemaMissing = errors.New("settlement schema missing, run mmsctl migrate")

// HealthCheck implements ports.HealthChecker for PostgreSQL.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping checks connectivity and that the sales table exists.
func (h *HealthCheck) Ping(ctx context.Context) error {
	var present bool
	if err := h.pool.QueryRow(ctx, `SELECT to_regclass('sales') IS NOT NULL`).Scan(&present); err != nil {
		return fmt.Errorf("postgres probe: %w", err)
	}
	if !present {
		return errSchemaMissing
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "postgresql"
}
