// Package sqlite keeps each merchant's own ledger in a separate SQLite file.
// A merchant scope is only reachable through Provider.ForMerchant, so a
// replicated order can never land in another merchant's ledger.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sale_id TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_method_title TEXT NOT NULL,
		total TEXT NOT NULL,
		billing TEXT NOT NULL,
		shipping TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		product_id INTEGER,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,
		total TEXT NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_meta (
		order_id INTEGER NOT NULL,
		meta_key TEXT NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (order_id, meta_key),
		FOREIGN KEY (order_id) REFERENCES orders(id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		note TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id)`,
}

// Migrate creates the ledger tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}
	return nil
}

// Ledger is one merchant's ledger scope. It implements ports.MerchantLedger.
type Ledger struct {
	db    *sql.DB
	owner domain.MerchantRef
	now   func() time.Time
}

// NewLedger wraps an already migrated database.
func NewLedger(db *sql.DB, owner domain.MerchantRef) *Ledger {
	return &Ledger{db: db, owner: owner, now: time.Now}
}

// Owner returns the merchant this ledger belongs to.
func (l *Ledger) Owner() domain.MerchantRef {
	return l.owner
}

func (l *Ledger) HasProduct(ctx context.Context, productID int64) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, productID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup product %d: %w", productID, err)
	}
	return true, nil
}

// UpsertProduct registers a product in the merchant's catalogue.
func (l *Ledger) UpsertProduct(ctx context.Context, productID int64, name string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO products (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		productID, name, l.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert product %d: %w", productID, err)
	}
	return nil
}

// CreateOrder writes a replicated order with its line, metadata and note in
// one transaction. The sale id is unique, so a repeat returns the existing
// order with created=false.
func (l *Ledger) CreateOrder(ctx context.Context, o *domain.MerchantOrder) (int64, bool, error) {
	billing, err := json.Marshal(o.Billing)
	if err != nil {
		return 0, false, fmt.Errorf("encode billing: %w", err)
	}
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return 0, false, fmt.Errorf("encode shipping: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin ledger order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := l.now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (sale_id, status, payment_method, payment_method_title, total, billing, shipping, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sale_id) DO NOTHING`,
		o.SaleID.String(), o.Status, o.PaymentMethod, o.PaymentMethodTitle,
		o.Amount.StringFixed(2), string(billing), string(shipping), now,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert ledger order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var id int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE sale_id = ?`, o.SaleID.String()).Scan(&id); err != nil {
			return 0, false, fmt.Errorf("read existing ledger order: %w", err)
		}
		return id, false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("ledger order id: %w", err)
	}

	var productID any
	if o.ProductID != nil {
		productID = *o.ProductID
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_lines (order_id, product_id, name, quantity, total) VALUES (?, ?, ?, 1, ?)`,
		id, productID, o.LineName, o.Amount.StringFixed(2),
	); err != nil {
		return 0, false, fmt.Errorf("insert ledger line: %w", err)
	}

	for key, value := range o.Metadata() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_meta (order_id, meta_key, meta_value) VALUES (?, ?, ?)`,
			id, key, value,
		); err != nil {
			return 0, false, fmt.Errorf("insert ledger meta %s: %w", key, err)
		}
	}

	if o.Note != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_notes (order_id, note, created_at) VALUES (?, ?, ?)`,
			id, o.Note, now,
		); err != nil {
			return 0, false, fmt.Errorf("insert ledger note: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit ledger order: %w", err)
	}
	return id, true, nil
}

// FindBySale reads back the order replicated for a sale. Returns nil, nil
// when the sale was never replicated here.
func (l *Ledger) FindBySale(ctx context.Context, saleID uuid.UUID) (*domain.LedgerOrder, error) {
	var (
		id                int64
		total             string
		billing, shipping string
		out               domain.LedgerOrder
	)
	err := l.db.QueryRowContext(ctx,
		`SELECT id, status, payment_method, payment_method_title, total, billing, shipping
		FROM orders WHERE sale_id = ?`,
		saleID.String(),
	).Scan(&id, &out.Order.Status, &out.Order.PaymentMethod, &out.Order.PaymentMethodTitle, &total, &billing, &shipping)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find ledger order: %w", err)
	}

	out.ID = id
	out.Order.SaleID = saleID
	if out.Order.Amount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("decode ledger total: %w", err)
	}
	if err := json.Unmarshal([]byte(billing), &out.Order.Billing); err != nil {
		return nil, fmt.Errorf("decode billing: %w", err)
	}
	if err := json.Unmarshal([]byte(shipping), &out.Order.Shipping); err != nil {
		return nil, fmt.Errorf("decode shipping: %w", err)
	}

	var productID sql.NullInt64
	if err := l.db.QueryRowContext(ctx,
		`SELECT product_id, name FROM order_lines WHERE order_id = ? ORDER BY id LIMIT 1`, id,
	).Scan(&productID, &out.Order.LineName); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read ledger line: %w", err)
	}
	if productID.Valid {
		pid := productID.Int64
		out.Order.ProductID = &pid
	}

	if err := l.readMeta(ctx, id, &out.Order); err != nil {
		return nil, err
	}

	if err := l.db.QueryRowContext(ctx,
		`SELECT note FROM order_notes WHERE order_id = ? ORDER BY id LIMIT 1`, id,
	).Scan(&out.Order.Note); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read ledger note: %w", err)
	}
	return &out, nil
}

func (l *Ledger) readMeta(ctx context.Context, orderID int64, o *domain.MerchantOrder) error {
	rows, err := l.db.QueryContext(ctx, `SELECT meta_key, meta_value FROM order_meta WHERE order_id = ?`, orderID)
	if err != nil {
		return fmt.Errorf("read ledger meta: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan ledger meta: %w", err)
		}
		switch key {
		case "original_order_id":
			o.OriginalOrderID, _ = strconv.ParseInt(value, 10, 64)
		case "original_site_id":
			o.OriginalSiteID, _ = strconv.ParseInt(value, 10, 64)
		case "transaction_id":
			o.TransactionID = value
		case "commission":
			o.Commission, _ = decimal.NewFromString(value)
		}
	}
	return rows.Err()
}

// CountOrders returns how many replicated orders the ledger holds.
func (l *Ledger) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger orders: %w", err)
	}
	return n, nil
}
