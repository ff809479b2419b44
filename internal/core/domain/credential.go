package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MerchantRef identifies a merchant by the (user, site) pair that owns a
// processor account. It is also the tenant handle for the merchant's ledger.
type MerchantRef struct {
	UserID int64 `json:"user_id"`
	SiteID int64 `json:"site_id"`
}

func (r MerchantRef) String() string {
	return fmt.Sprintf("%d:%d", r.UserID, r.SiteID)
}

// MerchantCredential is one merchant's processor account. Secrets are stored
// encrypted and never serialized.
type MerchantCredential struct {
	ID          uuid.UUID `json:"id"`
	UserID      int64     `json:"user_id"`
	SiteID      int64     `json:"site_id"`
	Username    string    `json:"username"`
	PasswordEnc string    `json:"-"`
	APIKeyEnc   string    `json:"-"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ref returns the merchant identity of the credential.
func (c *MerchantCredential) Ref() MerchantRef {
	return MerchantRef{UserID: c.UserID, SiteID: c.SiteID}
}

// IsUsable reports whether the credential can be charged against: it must be
// active with a non-empty username and password.
func (c *MerchantCredential) IsUsable() bool {
	return c.Active && c.Username != "" && c.PasswordEnc != ""
}

// ProcessorCredentials are the decrypted secrets handed to the processor
// client for a single call. Never persisted or logged.
type ProcessorCredentials struct {
	Username string `json:"-"`
	Password string `json:"-"`
	APIKey   string `json:"-"`
}

// IsComplete reports whether username and password are both present.
func (p ProcessorCredentials) IsComplete() bool {
	return p.Username != "" && p.Password != ""
}
