package ports

import (
	"context"
	"time"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CredentialRepository persists merchant processor credentials.
// Unique per (user id, site id).
type CredentialRepository interface {
	Upsert(ctx context.Context, cred *domain.MerchantCredential) error
	Get(ctx context.Context, ref domain.MerchantRef) (*domain.MerchantCredential, error)
	List(ctx context.Context, activeOnly bool) ([]domain.MerchantCredential, error)
	SetActive(ctx context.Context, ref domain.MerchantRef, active bool) error
	Delete(ctx context.Context, ref domain.MerchantRef) error
}

// OwnershipRepository persists product to merchant bindings.
// Unique per (product id, listing-site id).
type OwnershipRepository interface {
	Upsert(ctx context.Context, o *domain.ProductOwnership) error
	Get(ctx context.Context, productID, listingSiteID int64) (*domain.ProductOwnership, error)
	ListByMerchant(ctx context.Context, userID int64) ([]domain.ProductOwnership, error)
	Delete(ctx context.Context, productID, listingSiteID int64) error
}

// SaleRepository persists Sale rows. Status changes are conditional on the
// current status so the one-directional lifecycle holds under concurrency.
type SaleRepository interface {
	Create(ctx context.Context, sale *domain.Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	ListByOrder(ctx context.Context, orderID int64) ([]domain.Sale, error)

	// CompleteAll moves every listed pending row to completed, or none of them.
	CompleteAll(ctx context.Context, ids []uuid.UUID) error
	// Retract removes pending rows written by a settlement that failed.
	Retract(ctx context.Context, ids []uuid.UUID) error
	// MarkFailed moves pending rows to failed.
	MarkFailed(ctx context.Context, ids []uuid.UUID) error
	// MarkRefunded moves a completed row to refunded. Returns false if the
	// row was not completed.
	MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error)

	// ListUnsynced returns completed, unsynced rows oldest first.
	ListUnsynced(ctx context.Context, limit int) ([]domain.Sale, error)
	// MarkSynced sets synced=true only if it was false. Returns true for the
	// single caller that flipped it.
	MarkSynced(ctx context.Context, id uuid.UUID) (bool, error)
	RecordSyncFailure(ctx context.Context, id uuid.UUID, reason string) error

	// UpsertExternal folds a webhook-reported sale in, keyed by
	// (order id, merchant user id). Returns the stored row and whether it was created.
	UpsertExternal(ctx context.Context, sale *domain.Sale) (*domain.Sale, bool, error)
	// ApplyExternalRefund overwrites status and amount of the order's sales
	// (restricted to transactionID when set) and returns only rows it changed.
	ApplyExternalRefund(ctx context.Context, orderID int64, transactionID string, amount decimal.Decimal) ([]domain.Sale, error)

	// DeleteOlderThan removes refunded and failed rows last updated before the cutoff.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	Stats(ctx context.Context) (*domain.SalesStats, error)
}

// AuditRepository persists admin audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
