package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductOwnership binds a product listed on a sales site to the merchant
// that gets paid for it.
type ProductOwnership struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      int64           `json:"product_id"`
	OwnerUserID    int64           `json:"owner_user_id"`
	OwnerSiteID    int64           `json:"owner_site_id"`
	ListingSiteID  int64           `json:"listing_site_id"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Owner returns the owning merchant.
func (o *ProductOwnership) Owner() MerchantRef {
	return MerchantRef{UserID: o.OwnerUserID, SiteID: o.OwnerSiteID}
}

// ValidCommissionRate reports whether rate lies in [0, 100] with at most two
// decimal places.
func ValidCommissionRate(rate decimal.Decimal) bool {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return false
	}
	return rate.Equal(rate.Truncate(2))
}
