package dto

import (
	"github.com/shopspring/decimal"
)

// BillingAddress overrides the order's billing address at checkout.
type BillingAddress struct {
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Company   string `json:"company" binding:"max=100"`
	Address1  string `json:"address_1" binding:"max=200"`
	Address2  string `json:"address_2" binding:"max=200"`
	City      string `json:"city" binding:"max=100"`
	State     string `json:"state" binding:"max=100"`
	Postcode  string `json:"postcode" binding:"max=20"`
	Country   string `json:"country" binding:"max=2"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"max=30"`
}

// SettleRequest is the checkout body. Card fields are validated by the
// settlement service so that each failure gets its own error code.
type SettleRequest struct {
	CardNumber string          `json:"card_number"`
	CardExpiry string          `json:"card_expiry"`
	CardCVC    string          `json:"card_cvc"`
	Billing    *BillingAddress `json:"billing,omitempty"`
}

// SettleResponse is the customer-facing settlement outcome.
type SettleResponse struct {
	Result         string   `json:"result"`
	OrderID        int64    `json:"order_id"`
	RedirectURL    string   `json:"redirect_url,omitempty"`
	TransactionIDs []string `json:"transaction_ids"`
	TotalCharged   string   `json:"total_charged"`
}

// CartItemRequest is one cart line submitted for validation.
type CartItemRequest struct {
	ItemID    int64  `json:"item_id" binding:"required,gt=0"`
	ProductID int64  `json:"product_id" binding:"required,gt=0"`
	Name      string `json:"name" binding:"max=200"`
}

// ValidateCartRequest asks whether every cart line can be charged.
type ValidateCartRequest struct {
	ListingSiteID int64             `json:"listing_site_id" binding:"required,gt=0"`
	Items         []CartItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ValidateCartResponse lists the lines that cannot be charged.
type ValidateCartResponse struct {
	Valid        bool     `json:"valid"`
	InvalidItems []string `json:"invalid_items"`
}

// RefundRequest is the admin refund body. A missing amount refunds
// everything completed on the order.
type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason" binding:"max=500"`
}

// SaleWebhook is the body of POST /webhook/sale.
type SaleWebhook struct {
	OrderID        int64            `json:"order_id" form:"order_id" binding:"required,gt=0"`
	TransactionID  string           `json:"transaction_id" form:"transaction_id" binding:"required,max=100,safe_id"`
	Amount         *decimal.Decimal `json:"amount" form:"amount" binding:"required"`
	MerchantUserID int64            `json:"merchant_user_id" form:"merchant_user_id" binding:"gte=0"`
	MerchantSiteID int64            `json:"merchant_site_id" form:"merchant_site_id" binding:"gte=0"`
	ProductID      int64            `json:"product_id" form:"product_id" binding:"gte=0"`
	Status         string           `json:"status" form:"status" binding:"omitempty,oneof=pending completed refunded failed"`
}

// RefundWebhook is the body of POST /webhook/refund.
type RefundWebhook struct {
	OrderID       int64            `json:"order_id" form:"order_id" binding:"required,gt=0"`
	RefundAmount  *decimal.Decimal `json:"refund_amount" form:"refund_amount" binding:"required"`
	RefundReason  string           `json:"refund_reason" form:"refund_reason" binding:"max=500"`
	TransactionID string           `json:"transaction_id" form:"transaction_id" binding:"max=100,safe_id"`
}

// WebhookStatusResponse is the GET /webhook/status readback.
type WebhookStatusResponse struct {
	Status         string      `json:"status"`
	Version        string      `json:"version"`
	Timestamp      int64       `json:"timestamp"`
	Stats          interface{} `json:"stats,omitempty"`
	SyncPercentage float64     `json:"sync_percentage"`
}

// LoginRequest is the request body for admin login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// SaveCredentialRequest upserts a merchant's processor credentials.
type SaveCredentialRequest struct {
	UserID   int64  `json:"user_id" binding:"required,gt=0"`
	SiteID   int64  `json:"site_id" binding:"required,gt=0"`
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=200"`
	APIKey   string `json:"api_key" binding:"max=200"`
	Active   *bool  `json:"is_active,omitempty"`
}

// TestCredentialsRequest checks a credential set against the processor
// without saving it.
type TestCredentialsRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=200"`
	APIKey   string `json:"api_key" binding:"max=200"`
}

// TestCredentialsResponse reports whether the processor accepted a $1.00
// authorization.
type TestCredentialsResponse struct {
	Valid bool `json:"valid"`
}

// AssignOwnershipRequest binds a product listing to a merchant.
type AssignOwnershipRequest struct {
	ProductID      int64            `json:"product_id" binding:"required,gt=0"`
	ListingSiteID  int64            `json:"listing_site_id" binding:"required,gt=0"`
	OwnerUserID    int64            `json:"owner_user_id" binding:"required,gt=0"`
	OwnerSiteID    int64            `json:"owner_site_id" binding:"required,gt=0"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
	ProductName    string           `json:"product_name,omitempty" binding:"omitempty,max=255"`
}

// CleanupResponse reports how many sale rows were purged.
type CleanupResponse struct {
	Days    int   `json:"days"`
	Deleted int64 `json:"deleted"`
}
