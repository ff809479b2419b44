package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// ExternalSaleEvent reports a sale that happened outside the settle flow.
type ExternalSaleEvent struct {
	OrderID        int64
	TransactionID  string
	Amount         decimal.Decimal
	MerchantUserID int64
	MerchantSiteID int64
	ProductID      int64
	Status         SaleStatus
}

// HasMerchant reports whether the event names the merchant it belongs to.
func (e ExternalSaleEvent) HasMerchant() bool {
	return e.MerchantUserID > 0 && e.MerchantSiteID > 0
}

// ExternalRefundEvent mirrors a refund that the processor already performed.
type ExternalRefundEvent struct {
	OrderID       int64
	RefundAmount  decimal.Decimal
	Reason        string
	TransactionID string
}

func int64String(v int64) string {
	return strconv.FormatInt(v, 10)
}
