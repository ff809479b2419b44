package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// OrderRepo reads host shop orders and applies the post-payment checkout
// hooks. It implements ports.OrderSource and ports.CheckoutHooks.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// GetOrder loads an order with its lines. Missing orders wrap domain.ErrNotFound.
func (r *OrderRepo) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	o := &domain.Order{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, listing_site_id, customer_id, status, currency, total, billing, shipping, customer_ip, created_at
		FROM shop_orders WHERE id = $1`,
		orderID,
	).Scan(
		&o.ID, &o.ListingSiteID, &o.CustomerID, &o.Status, &o.Currency, &o.Total,
		&o.Billing, &o.Shipping, &o.CustomerIP, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, name, quantity, total FROM shop_order_items WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ItemID, &li.ProductID, &li.Name, &li.Quantity, &li.Total); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return o, nil
}

// MarkPaid moves the order to processing and stores the joined transaction ids.
func (r *OrderRepo) MarkPaid(ctx context.Context, orderID int64, transactionIDs []string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE shop_orders SET status = 'processing', transaction_id = $2, paid_at = NOW() WHERE id = $1`,
		orderID, strings.Join(transactionIDs, ","),
	)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, domain.ErrNotFound)
	}
	return nil
}

func (r *OrderRepo) AddOrderNote(ctx context.Context, orderID int64, note string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO shop_order_notes (order_id, note) VALUES ($1, $2)`,
		orderID, note,
	)
	if err != nil {
		return fmt.Errorf("add order note: %w", err)
	}
	return nil
}

// ReduceStock decrements managed stock by the ordered quantities.
func (r *OrderRepo) ReduceStock(ctx context.Context, orderID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE shop_products p SET stock_quantity = p.stock_quantity - i.quantity
		FROM shop_order_items i
		WHERE i.order_id = $1 AND i.product_id = p.id AND p.manage_stock`,
		orderID,
	)
	if err != nil {
		return fmt.Errorf("reduce stock: %w", err)
	}
	return nil
}

func (r *OrderRepo) ClearCart(ctx context.Context, customerID int64) error {
	if customerID == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM shop_cart_items WHERE customer_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
