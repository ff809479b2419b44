package ports

import (
	"context"
	"time"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// SettlementCache is the Redis-layer duplicate-submit check (fast path).
type SettlementCache interface {
	Get(ctx context.Context, orderID int64) (*domain.SettlementResult, error) // nil when absent
	Set(ctx context.Context, result *domain.SettlementResult, ttl time.Duration) error
}

// LockStore hands out short-lived exclusive claims.
type LockStore interface {
	// Acquire returns true if the caller now holds key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// --- Processor ---

// ProcessorOutcome is the closed taxonomy every processor response maps to.
type ProcessorOutcome string

const (
	OutcomeApproved ProcessorOutcome = "approved"
	OutcomeDeclined ProcessorOutcome = "declined"
	OutcomeError    ProcessorOutcome = "error"
)

// ChargeRequest is a single per-item charge.
type ChargeRequest struct {
	OrderID     int64
	Description string
	Amount      decimal.Decimal
	Card        domain.Card
	Billing     domain.Address
	Shipping    domain.Address
	CustomerIP  string
}

// ProcessorResult is the normalized answer to any processor call.
// Message is safe to show a customer; RawText stays server-side.
type ProcessorResult struct {
	Outcome       ProcessorOutcome
	TransactionID string
	AuthCode      string
	Message       string
	RawText       string
	// Curated is true when Message came from the known-reason table.
	Curated bool
}

// Success reports whether the processor approved the call.
func (r *ProcessorResult) Success() bool {
	return r != nil && r.Outcome == OutcomeApproved
}

// ProcessorGateway is the remote card processor. Calls never return errors:
// timeouts and transport failures come back as OutcomeError.
type ProcessorGateway interface {
	Charge(ctx context.Context, creds domain.ProcessorCredentials, req ChargeRequest) *ProcessorResult
	Void(ctx context.Context, creds domain.ProcessorCredentials, transactionID string) *ProcessorResult
	Refund(ctx context.Context, creds domain.ProcessorCredentials, transactionID string, amount decimal.Decimal, reason string) *ProcessorResult
	TestCredentials(ctx context.Context, creds domain.ProcessorCredentials) bool
}

// --- Service Ports (Business Logic) ---

// ResolvedItem is one cart line bound to its merchant.
type ResolvedItem struct {
	Item        domain.CartItem
	Ownership   *domain.ProductOwnership
	Credential  *domain.MerchantCredential
	Credentials domain.ProcessorCredentials
}

// Resolution is the answer to "can this cart be charged at all".
type Resolution struct {
	Valid           bool
	PerItemMerchant map[int64]ResolvedItem // keyed by cart item id
	InvalidItems    []string
}

// OwnershipResolver maps every cart line to an active merchant.
type OwnershipResolver interface {
	Resolve(ctx context.Context, listingSiteID int64, items []domain.CartItem) (*Resolution, error)
}

// SettleRequest is the settle entry point input.
type SettleRequest struct {
	OrderID    int64
	Card       domain.Card
	Billing    *domain.Address // overrides the order's billing when set
	CustomerIP string
}

// RefundRequest is the refund entry point input.
type RefundRequest struct {
	OrderID int64
	Amount  *decimal.Decimal // nil = refund everything completed
	Reason  string
	Actor   string
}

// SettlementService charges and refunds orders across merchants.
type SettlementService interface {
	Settle(ctx context.Context, req SettleRequest) (*domain.SettlementResult, error)
	Refund(ctx context.Context, req RefundRequest) (*domain.RefundResult, error)
}

// SyncOutcome is the result of syncing one sale.
type SyncOutcome struct {
	SaleID        uuid.UUID `json:"sale_id"`
	Synced        bool      `json:"synced"`
	AlreadySynced bool      `json:"already_synced"`
	LedgerOrderID int64     `json:"ledger_order_id,omitempty"`
}

// SyncReport summarizes a batch sync run.
type SyncReport struct {
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// ExternalSaleResult is the outcome of a sale webhook.
type ExternalSaleResult struct {
	SaleID  uuid.UUID `json:"sale_id"`
	Created bool      `json:"created"`
	Synced  bool      `json:"synced"`
}

// ExternalRefundResult is the outcome of a refund webhook.
type ExternalRefundResult struct {
	Updated int `json:"updated"`
}

// ReconciliationService replicates sales into merchant ledgers and mirrors
// externally reported sales and refunds.
type ReconciliationService interface {
	SettlementEventSink
	SyncOne(ctx context.Context, saleID uuid.UUID) (*SyncOutcome, error)
	SyncAll(ctx context.Context) (*SyncReport, error)
	SyncOrder(ctx context.Context, orderID int64) (*SyncReport, error)
	OnExternalSale(ctx context.Context, event domain.ExternalSaleEvent) (*ExternalSaleResult, error)
	OnExternalRefund(ctx context.Context, event domain.ExternalRefundEvent) (*ExternalRefundResult, error)
	Stats(ctx context.Context) (*domain.SalesStats, error)
	CleanupOldSales(ctx context.Context, days int) (int64, error)
}

// SaveCredentialRequest carries plaintext secrets to be encrypted at rest.
type SaveCredentialRequest struct {
	Merchant domain.MerchantRef
	Username string
	Password string
	APIKey   string
	Active   bool
}

// CredentialService manages merchant processor credentials.
type CredentialService interface {
	Save(ctx context.Context, req SaveCredentialRequest) (*domain.MerchantCredential, error)
	Get(ctx context.Context, ref domain.MerchantRef) (*domain.MerchantCredential, error)
	List(ctx context.Context, activeOnly bool) ([]domain.MerchantCredential, error)
	Test(ctx context.Context, username, password, apiKey string) bool
	TestStored(ctx context.Context, ref domain.MerchantRef) (bool, error)
	Deactivate(ctx context.Context, ref domain.MerchantRef) error
	Delete(ctx context.Context, ref domain.MerchantRef) error
	// Reveal decrypts stored secrets for a processor call.
	Reveal(cred *domain.MerchantCredential) (domain.ProcessorCredentials, error)
}

// AssignOwnershipRequest binds a product to a merchant.
type AssignOwnershipRequest struct {
	ProductID      int64
	ListingSiteID  int64
	Owner          domain.MerchantRef
	CommissionRate decimal.Decimal
	ProductName    string
}

// OwnershipService manages product ownership.
type OwnershipService interface {
	Assign(ctx context.Context, req AssignOwnershipRequest) (*domain.ProductOwnership, error)
	Remove(ctx context.Context, productID, listingSiteID int64) error
	ListByMerchant(ctx context.Context, userID int64) ([]domain.ProductOwnership, error)
}

// AdminAuthService authenticates the installation admin.
type AdminAuthService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// AuditService records audit logs for admin actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
