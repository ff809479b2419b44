package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStatus is the settlement state of one per-item charge.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusRefunded  SaleStatus = "refunded"
	SaleStatusFailed    SaleStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next is allowed.
// pending -> completed -> refunded; pending -> failed. Nothing returns to pending.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	switch s {
	case SaleStatusPending:
		return next == SaleStatusCompleted || next == SaleStatusFailed
	case SaleStatusCompleted:
		return next == SaleStatusRefunded
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s SaleStatus) Valid() bool {
	switch s {
	case SaleStatusPending, SaleStatusCompleted, SaleStatusRefunded, SaleStatusFailed:
		return true
	}
	return false
}

// Sale is the persisted record of one per-item charge.
type Sale struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        int64           `json:"order_id"`
	ProductID      int64           `json:"product_id"`
	MerchantUserID int64           `json:"merchant_user_id"`
	MerchantSiteID int64           `json:"merchant_site_id"`
	ListingSiteID  int64           `json:"listing_site_id"`
	Amount         decimal.Decimal `json:"amount"`
	Commission     decimal.Decimal `json:"commission"`
	TransactionID  string          `json:"transaction_id"`
	Status         SaleStatus      `json:"status"`
	Synced         bool            `json:"synced_to_merchant"`
	SyncAttempts   int             `json:"sync_attempts"`
	LastSyncError  *string         `json:"last_sync_error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Merchant returns the merchant that was paid for this sale.
func (s *Sale) Merchant() MerchantRef {
	return MerchantRef{UserID: s.MerchantUserID, SiteID: s.MerchantSiteID}
}

// NeedsSync reports whether the sale still has to be replicated to the
// merchant's ledger.
func (s *Sale) NeedsSync() bool {
	return s.Status == SaleStatusCompleted && !s.Synced
}

// IsRefundable reports whether the sale can be refunded through the processor.
func (s *Sale) IsRefundable() bool {
	return s.Status == SaleStatusCompleted && s.TransactionID != ""
}

// SalesStats is the network-wide sales overview.
type SalesStats struct {
	TotalSales      int64           `json:"total_sales"`
	CompletedSales  int64           `json:"completed_sales"`
	RefundedSales   int64           `json:"refunded_sales"`
	SyncedSales     int64           `json:"synced_sales"`
	PendingSync     int64           `json:"pending_sync"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	ActiveMerchants int64           `json:"active_merchants"`
	TotalProducts   int64           `json:"total_products"`
	ActiveSites     int64           `json:"active_sites"`
}

// SyncPercentage is the share of completed sales already replicated, 0-100.
func (s *SalesStats) SyncPercentage() float64 {
	if s.CompletedSales == 0 {
		return 0
	}
	pct := decimal.NewFromInt(s.SyncedSales).
		Mul(hundred).
		Div(decimal.NewFromInt(s.CompletedSales)).
		Round(2)
	return pct.InexactFloat64()
}
