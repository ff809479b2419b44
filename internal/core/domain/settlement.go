package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementState tracks one checkout through the orchestrator.
type SettlementState string

const (
	SettlementNotStarted SettlementState = "not_started"
	SettlementCharging   SettlementState = "charging"
	SettlementAllCharged SettlementState = "all_charged"
	SettlementFinalizing SettlementState = "finalizing"
	SettlementDone       SettlementState = "done"
	SettlementFailed     SettlementState = "failed"
)

// AttemptEntry is one successful charge within a settlement. It keeps the
// credentials that produced the charge so a void reaches the same account.
type AttemptEntry struct {
	ItemID        int64
	ProductID     int64
	Merchant      MerchantRef
	Credentials   ProcessorCredentials
	Amount        decimal.Decimal
	TransactionID string
	SaleID        uuid.UUID
}

// SettlementAttempt is the in-memory, ordered list of charges made so far
// for one checkout. It is discarded when the settle call returns.
type SettlementAttempt struct {
	OrderID int64
	State   SettlementState
	entries []AttemptEntry
}

// NewSettlementAttempt starts an attempt for an order.
func NewSettlementAttempt(orderID int64) *SettlementAttempt {
	return &SettlementAttempt{OrderID: orderID, State: SettlementNotStarted}
}

// Record appends a successful charge.
func (a *SettlementAttempt) Record(e AttemptEntry) {
	a.entries = append(a.entries, e)
}

// Entries returns the charges in the order they were made.
func (a *SettlementAttempt) Entries() []AttemptEntry {
	return a.entries
}

// TransactionIDs returns the processor transaction ids in charge order.
func (a *SettlementAttempt) TransactionIDs() []string {
	ids := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		ids = append(ids, e.TransactionID)
	}
	return ids
}

// SaleIDs returns the ids of the Sale rows written for this attempt.
func (a *SettlementAttempt) SaleIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(a.entries))
	for _, e := range a.entries {
		if e.SaleID != uuid.Nil {
			ids = append(ids, e.SaleID)
		}
	}
	return ids
}

// Total is the sum charged so far.
func (a *SettlementAttempt) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range a.entries {
		total = total.Add(e.Amount)
	}
	return total
}

// SettlementResult is returned by a successful settle.
type SettlementResult struct {
	OrderID        int64           `json:"order_id"`
	Success        bool            `json:"success"`
	TransactionIDs []string        `json:"transaction_ids"`
	TotalCharged   decimal.Decimal `json:"total_charged"`
	RedirectURL    string          `json:"redirect_url,omitempty"`
}

// SettlementCompletedEvent is emitted once every Sale row of an order is
// durably completed.
type SettlementCompletedEvent struct {
	OrderID        int64
	TransactionIDs []string
	SaleIDs        []uuid.UUID
}

// SaleRefund is the outcome of refunding one sale.
type SaleRefund struct {
	SaleID              uuid.UUID       `json:"sale_id"`
	TransactionID       string          `json:"transaction_id"`
	RefundTransactionID string          `json:"refund_transaction_id,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
}

// RefundResult is returned by a successful refund.
type RefundResult struct {
	OrderID  int64           `json:"order_id"`
	Refunded decimal.Decimal `json:"refunded"`
	Refunds  []SaleRefund    `json:"refunds"`
}
