package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ledgerSchema creates the credentials, ownership, sales and audit tables.
var ledgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS merchant_credentials (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL,
		site_id BIGINT NOT NULL,
		processor_username VARCHAR(255) NOT NULL,
		processor_password_enc TEXT NOT NULL,
		processor_api_key_enc TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, site_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_merchant_credentials_active ON merchant_credentials (is_active, user_id)`,

	`CREATE TABLE IF NOT EXISTS product_ownership (
		id UUID PRIMARY KEY,
		product_id BIGINT NOT NULL,
		owner_user_id BIGINT NOT NULL,
		owner_site_id BIGINT NOT NULL,
		listing_site_id BIGINT NOT NULL,
		commission_rate NUMERIC(5,2) NOT NULL DEFAULT 0 CHECK (commission_rate >= 0 AND commission_rate <= 100),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (product_id, listing_site_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_product_ownership_owner ON product_ownership (owner_user_id, owner_site_id)`,

	`CREATE TABLE IF NOT EXISTS sales (
		id UUID PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL DEFAULT 0,
		merchant_user_id BIGINT NOT NULL,
		merchant_site_id BIGINT NOT NULL,
		listing_site_id BIGINT NOT NULL DEFAULT 0,
		amount NUMERIC(10,2) NOT NULL CHECK (amount >= 0),
		commission NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (commission >= 0),
		transaction_id VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'completed', 'refunded', 'failed')),
		synced_to_merchant BOOLEAN NOT NULL DEFAULT FALSE,
		sync_attempts INTEGER NOT NULL DEFAULT 0,
		last_sync_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_sales_order_product_site ON sales (order_id, product_id, listing_site_id) WHERE product_id > 0`,
	`CREATE INDEX IF NOT EXISTS idx_sales_order ON sales (order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_merchant ON sales (merchant_user_id, merchant_site_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_status ON sales (status)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_sync ON sales (synced_to_merchant, status, created_at)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		actor VARCHAR(255) NOT NULL,
		action VARCHAR(50) NOT NULL,
		resource_type VARCHAR(50) NOT NULL,
		resource_id VARCHAR(255) NOT NULL DEFAULT '',
		details JSONB,
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// hostSchema mirrors the host shop tables read by OrderRepo. Production
// installs already have them; local setups can create them with Migrate.
var hostSchema = []string{
	`CREATE TABLE IF NOT EXISTS shop_orders (
		id BIGSERIAL PRIMARY KEY,
		listing_site_id BIGINT NOT NULL,
		customer_id BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(30) NOT NULL DEFAULT 'pending',
		currency CHAR(3) NOT NULL DEFAULT 'USD',
		total NUMERIC(10,2) NOT NULL,
		billing JSONB NOT NULL DEFAULT '{}',
		shipping JSONB NOT NULL DEFAULT '{}',
		customer_ip VARCHAR(64) NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		paid_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS shop_order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES shop_orders(id),
		product_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		total NUMERIC(10,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shop_order_notes (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES shop_orders(id),
		note TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS shop_products (
		id BIGINT PRIMARY KEY,
		manage_stock BOOLEAN NOT NULL DEFAULT FALSE,
		stock_quantity INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS shop_cart_items (
		id BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1
	)`,
}

// Migrate creates the ledger tables, and the host shop tables when withHost is set.
func Migrate(ctx context.Context, pool Pool, withHost bool, log zerolog.Logger) error {
	stmts := ledgerSchema
	if withHost {
		stmts = append(append([]string{}, hostSchema...), ledgerSchema...)
	}

	for i, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}

	log.Info().Int("statements", len(stmts)).Bool("host_tables", withHost).Msg("schema migrated")
	return nil
}
