package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// PaymentMethodNetworkSync marks a replicated order as not being a real charge.
	PaymentMethodNetworkSync      = "network_sync"
	PaymentMethodNetworkSyncTitle = "Network Sale Sync"
	// FallbackLineName is used when the product does not exist in the merchant's scope.
	FallbackLineName = "Network Sale"
	// LedgerOrderStatusCompleted is the status of every replicated order.
	LedgerOrderStatusCompleted = "completed"
)

// MerchantOrder is the order-equivalent record written into a merchant's
// own ledger when a sale is replicated.
type MerchantOrder struct {
	SaleID             uuid.UUID       `json:"sale_id"`
	OriginalOrderID    int64           `json:"original_order_id"`
	OriginalSiteID     int64           `json:"original_site_id"`
	TransactionID      string          `json:"transaction_id"`
	Commission         decimal.Decimal `json:"commission"`
	Billing            Address         `json:"billing"`
	Shipping           Address         `json:"shipping"`
	ProductID          *int64          `json:"product_id,omitempty"`
	LineName           string          `json:"line_name"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentMethod      string          `json:"payment_method"`
	PaymentMethodTitle string          `json:"payment_method_title"`
	Status             string          `json:"status"`
	Note               string          `json:"note"`
}

// Metadata returns the cross-reference fields linking back to the original sale.
func (m *MerchantOrder) Metadata() map[string]string {
	return map[string]string{
		"original_order_id": int64String(m.OriginalOrderID),
		"original_site_id":  int64String(m.OriginalSiteID),
		"transaction_id":    m.TransactionID,
		"commission":        m.Commission.StringFixed(2),
		"sale_id":           m.SaleID.String(),
	}
}

// LedgerOrder is a replicated order as read back from a merchant ledger.
type LedgerOrder struct {
	ID    int64
	Order MerchantOrder
}
