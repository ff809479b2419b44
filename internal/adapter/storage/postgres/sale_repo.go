package postgres

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const saleColumns = `id, order_id, product_id, merchant_user_id, merchant_site_id, listing_site_id, amount, commission, transaction_id, status, synced_to_merchant, sync_attempts, last_sync_error, created_at, updated_at`

const insertSale = `INSERT INTO sales (id, order_id, product_id, merchant_user_id, merchant_site_id, listing_site_id, amount, commission, transaction_id, status, synced_to_merchant, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// SaleRepo implements ports.SaleRepository.
type SaleRepo struct {
	pool Pool
}

// NewSaleRepo creates a new SaleRepo.
func NewSaleRepo(pool Pool) *SaleRepo {
	return &SaleRepo{pool: pool}
}

// Create inserts a sale row.
func (r *SaleRepo) Create(ctx context.Context, s *domain.Sale) error {
	_, err := r.pool.Exec(ctx, insertSale, saleInsertArgs(s)...)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// GetByID fetches a sale. Returns nil, nil when absent.
func (r *SaleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	s, err := scanSale(r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return s, nil
}

// ListByOrder returns every sale of an order in the order it was written.
func (r *SaleRepo) ListByOrder(ctx context.Context, orderID int64) ([]domain.Sale, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE order_id = $1 ORDER BY created_at ASC, id ASC`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sales by order: %w", err)
	}
	return collectSales(rows)
}

// CompleteAll promotes pending rows to completed in one transaction. If any
// row is no longer pending nothing changes.
func (r *SaleRepo) CompleteAll(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin complete sales: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE sales SET status = 'completed', updated_at = NOW() WHERE id = ANY($1) AND status = 'pending'`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("complete sales: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("complete sales: %d of %d rows pending", tag.RowsAffected(), len(ids))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit complete sales: %w", err)
	}
	return nil
}

// Retract deletes pending rows of a settlement that did not go through.
func (r *SaleRepo) Retract(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM sales WHERE id = ANY($1) AND status = 'pending'`, ids)
	if err != nil {
		return fmt.Errorf("retract sales: %w", err)
	}
	return nil
}

// MarkFailed moves pending rows to failed.
func (r *SaleRepo) MarkFailed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE sales SET status = 'failed', updated_at = NOW() WHERE id = ANY($1) AND status = 'pending'`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("mark sales failed: %w", err)
	}
	return nil
}

// MarkRefunded moves a completed row to refunded.
func (r *SaleRepo) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sales SET status = 'refunded', updated_at = NOW() WHERE id = $1 AND status = 'completed'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("mark sale refunded: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListUnsynced returns completed, unsynced sales oldest first.
func (r *SaleRepo) ListUnsynced(ctx context.Context, limit int) ([]domain.Sale, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+saleColumns+` FROM sales
		WHERE status = 'completed' AND synced_to_merchant = FALSE
		ORDER BY created_at ASC, id ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unsynced sales: %w", err)
	}
	return collectSales(rows)
}

// MarkSynced flips synced_to_merchant with a single conditional update.
func (r *SaleRepo) MarkSynced(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sales SET synced_to_merchant = TRUE, last_sync_error = NULL, updated_at = NOW()
		WHERE id = $1 AND synced_to_merchant = FALSE`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("mark sale synced: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordSyncFailure counts a failed attempt and keeps its reason.
func (r *SaleRepo) RecordSyncFailure(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sales SET sync_attempts = sync_attempts + 1, last_sync_error = $2, updated_at = NOW()
		WHERE id = $1 AND synced_to_merchant = FALSE`,
		id, reason,
	)
	if err != nil {
		return fmt.Errorf("record sync failure: %w", err)
	}
	return nil
}

// UpsertExternal folds a webhook sale in under an advisory lock on
// (order id, merchant user id) so concurrent replays see each other.
func (r *SaleRepo) UpsertExternal(ctx context.Context, s *domain.Sale) (*domain.Sale, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin upsert external sale: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, externalSaleLockKey(s.OrderID, s.MerchantUserID)); err != nil {
		return nil, false, fmt.Errorf("lock external sale: %w", err)
	}

	existing, err := scanSale(tx.QueryRow(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE order_id = $1 AND merchant_user_id = $2 ORDER BY created_at ASC LIMIT 1`,
		s.OrderID, s.MerchantUserID,
	))
	switch {
	case err == nil:
		if existing.TransactionID == "" && s.TransactionID != "" {
			if _, err := tx.Exec(ctx,
				`UPDATE sales SET transaction_id = $2, updated_at = NOW() WHERE id = $1`,
				existing.ID, s.TransactionID,
			); err != nil {
				return nil, false, fmt.Errorf("update external sale: %w", err)
			}
			existing.TransactionID = s.TransactionID
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit external sale: %w", err)
		}
		return existing, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, false, fmt.Errorf("find external sale: %w", err)
	}

	if _, err := tx.Exec(ctx, insertSale, saleInsertArgs(s)...); err != nil {
		return nil, false, fmt.Errorf("insert external sale: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit external sale: %w", err)
	}
	return s, true, nil
}

// ApplyExternalRefund overwrites status and amount. Rows already refunded
// with the same amount are left alone, so a replay changes nothing.
func (r *SaleRepo) ApplyExternalRefund(ctx context.Context, orderID int64, transactionID string, amount decimal.Decimal) ([]domain.Sale, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE sales SET status = 'refunded', amount = $2, updated_at = NOW()
		WHERE order_id = $1
			AND ($3 = '' OR transaction_id = $3)
			AND status IN ('completed', 'refunded')
			AND NOT (status = 'refunded' AND amount = $2)
		RETURNING `+saleColumns,
		orderID, amount, transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("apply external refund: %w", err)
	}
	return collectSales(rows)
}

// DeleteOlderThan removes refunded and failed rows last updated before the cutoff.
func (r *SaleRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM sales WHERE status IN ('refunded', 'failed') AND updated_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("delete old sales: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats aggregates the network sales overview.
func (r *SaleRepo) Stats(ctx context.Context) (*domain.SalesStats, error) {
	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'refunded'),
		COUNT(*) FILTER (WHERE status = 'completed' AND synced_to_merchant),
		COUNT(*) FILTER (WHERE status = 'completed' AND NOT synced_to_merchant),
		COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
		COALESCE(SUM(commission) FILTER (WHERE status = 'completed'), 0),
		(SELECT COUNT(*) FROM merchant_credentials WHERE is_active),
		(SELECT COUNT(*) FROM product_ownership),
		(SELECT COUNT(DISTINCT listing_site_id) FROM product_ownership)
	FROM sales`

	st := &domain.SalesStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&st.TotalSales, &st.CompletedSales, &st.RefundedSales, &st.SyncedSales, &st.PendingSync,
		&st.TotalAmount, &st.TotalCommission,
		&st.ActiveMerchants, &st.TotalProducts, &st.ActiveSites,
	)
	if err != nil {
		return nil, fmt.Errorf("sales stats: %w", err)
	}
	return st, nil
}

func saleInsertArgs(s *domain.Sale) []any {
	return []any{
		s.ID, s.OrderID, s.ProductID, s.MerchantUserID, s.MerchantSiteID, s.ListingSiteID,
		s.Amount, s.Commission, s.TransactionID, s.Status, s.Synced,
		s.CreatedAt, s.UpdatedAt,
	}
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	s := &domain.Sale{}
	err := row.Scan(
		&s.ID, &s.OrderID, &s.ProductID, &s.MerchantUserID, &s.MerchantSiteID, &s.ListingSiteID,
		&s.Amount, &s.Commission, &s.TransactionID, &s.Status, &s.Synced,
		&s.SyncAttempts, &s.LastSyncError, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func collectSales(rows pgx.Rows) ([]domain.Sale, error) {
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

// externalSaleLockKey derives the advisory lock id for one (order, merchant) pair.
func externalSaleLockKey(orderID, merchantUserID int64) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "external-sale:%d:%d", orderID, merchantUserID)
	return int64(h.Sum64())
}
