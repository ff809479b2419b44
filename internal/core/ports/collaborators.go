package ports

import (
	"context"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSource reads host shop orders. Read-only from the pipeline's side.
type OrderSource interface {
	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)
}

// CheckoutHooks are the host shop actions run after every item has settled.
type CheckoutHooks interface {
	MarkPaid(ctx context.Context, orderID int64, transactionIDs []string) error
	AddOrderNote(ctx context.Context, orderID int64, note string) error
	ReduceStock(ctx context.Context, orderID int64) error
	ClearCart(ctx context.Context, customerID int64) error
}

// LedgerProvider hands out an explicit handle to one merchant's own ledger.
type LedgerProvider interface {
	ForMerchant(ctx context.Context, ref domain.MerchantRef) (MerchantLedger, error)
}

// MerchantLedger is a single merchant's ledger scope.
type MerchantLedger interface {
	HasProduct(ctx context.Context, productID int64) (bool, error)
	// UpsertProduct registers a product in the merchant's catalogue so
	// replicated orders can reference it.
	UpsertProduct(ctx context.Context, productID int64, name string) error
	// CreateOrder writes the replicated order. It is keyed by sale id: a
	// second call for the same sale returns the existing id with created=false.
	CreateOrder(ctx context.Context, order *domain.MerchantOrder) (id int64, created bool, err error)
	FindBySale(ctx context.Context, saleID uuid.UUID) (*domain.LedgerOrder, error)
}

// Notifier delivers merchant and admin notifications. Callers treat every
// error as best-effort.
type Notifier interface {
	NotifySale(ctx context.Context, sale domain.Sale) error
	NotifyRefund(ctx context.Context, sale domain.Sale, amount decimal.Decimal, reason string) error
	NotifyPaymentConfirmation(ctx context.Context, merchant domain.MerchantRef, orderID int64, total decimal.Decimal, transactionIDs []string) error
	// AlertSyncFailures carries only the count.
	AlertSyncFailures(ctx context.Context, failed int) error
}

// SettlementEventSink consumes settlement-completed events.
type SettlementEventSink interface {
	OnSettlementCompleted(ctx context.Context, event domain.SettlementCompletedEvent)
}
