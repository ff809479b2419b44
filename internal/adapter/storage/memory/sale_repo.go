package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleRepo keeps sales in insertion order. Every status change goes through
// SaleStatus.CanTransitionTo under the write lock, matching the conditional
// updates of the SQL store.
type SaleRepo struct {
	mu     sync.RWMutex
	order  []uuid.UUID
	sales  map[uuid.UUID]*domain.Sale
	creds  *CredentialRepo
	owners *OwnershipRepo
}

// NewSaleRepo creates a SaleRepo. creds and owners feed Stats and may be nil.
func NewSaleRepo(creds *CredentialRepo, owners *OwnershipRepo) *SaleRepo {
	return &SaleRepo{
		sales:  make(map[uuid.UUID]*domain.Sale),
		creds:  creds,
		owners: owners,
	}
}

func (r *SaleRepo) Create(ctx context.Context, s *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(s)
}

func (r *SaleRepo) insertLocked(s *domain.Sale) error {
	if _, ok := r.sales[s.ID]; ok {
		return fmt.Errorf("sale %s already exists", s.ID)
	}
	if s.ProductID > 0 {
		for _, existing := range r.sales {
			if existing.OrderID == s.OrderID && existing.ProductID == s.ProductID && existing.ListingSiteID == s.ListingSiteID {
				return fmt.Errorf("sale for order %d product %d already exists", s.OrderID, s.ProductID)
			}
		}
	}
	cp := *s
	r.sales[s.ID] = &cp
	r.order = append(r.order, s.ID)
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *SaleRepo) ListByOrder(ctx context.Context, orderID int64) ([]domain.Sale, error) {
	return r.filter(0, func(s *domain.Sale) bool { return s.OrderID == orderID }), nil
}

func (r *SaleRepo) CompleteAll(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		s, ok := r.sales[id]
		if !ok || !s.Status.CanTransitionTo(domain.SaleStatusCompleted) {
			return fmt.Errorf("complete sales: %s is not pending", id)
		}
	}
	now := time.Now().UTC()
	for _, id := range ids {
		r.sales[id].Status = domain.SaleStatusCompleted
		r.sales[id].UpdatedAt = now
	}
	return nil
}

func (r *SaleRepo) Retract(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if s, ok := r.sales[id]; ok && s.Status == domain.SaleStatusPending {
			drop[id] = struct{}{}
			delete(r.sales, id)
		}
	}
	kept := r.order[:0]
	for _, id := range r.order {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	r.order = kept
	return nil
}

func (r *SaleRepo) MarkFailed(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		if s, ok := r.sales[id]; ok && s.Status.CanTransitionTo(domain.SaleStatusFailed) {
			s.Status = domain.SaleStatusFailed
			s.UpdatedAt = now
		}
	}
	return nil
}

func (r *SaleRepo) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok || !s.Status.CanTransitionTo(domain.SaleStatusRefunded) {
		return false, nil
	}
	s.Status = domain.SaleStatusRefunded
	s.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *SaleRepo) ListUnsynced(ctx context.Context, limit int) ([]domain.Sale, error) {
	return r.filter(limit, func(s *domain.Sale) bool { return s.NeedsSync() }), nil
}

func (r *SaleRepo) MarkSynced(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok || s.Synced {
		return false, nil
	}
	s.Synced = true
	s.LastSyncError = nil
	s.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *SaleRepo) RecordSyncFailure(ctx context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok || s.Synced {
		return nil
	}
	s.SyncAttempts++
	s.LastSyncError = &reason
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *SaleRepo) UpsertExternal(ctx context.Context, s *domain.Sale) (*domain.Sale, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		existing := r.sales[id]
		if existing.OrderID != s.OrderID || existing.MerchantUserID != s.MerchantUserID {
			continue
		}
		if existing.TransactionID == "" && s.TransactionID != "" {
			existing.TransactionID = s.TransactionID
			existing.UpdatedAt = time.Now().UTC()
		}
		cp := *existing
		return &cp, false, nil
	}
	if err := r.insertLocked(s); err != nil {
		return nil, false, err
	}
	cp := *s
	return &cp, true, nil
}

func (r *SaleRepo) ApplyExternalRefund(ctx context.Context, orderID int64, transactionID string, amount decimal.Decimal) ([]domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var changed []domain.Sale
	for _, id := range r.order {
		s := r.sales[id]
		if s.OrderID != orderID || (transactionID != "" && s.TransactionID != transactionID) {
			continue
		}
		if s.Status != domain.SaleStatusRefunded && !s.Status.CanTransitionTo(domain.SaleStatusRefunded) {
			continue
		}
		if s.Status == domain.SaleStatusRefunded && s.Amount.Equal(amount) {
			continue
		}
		s.Status = domain.SaleStatusRefunded
		s.Amount = amount
		s.UpdatedAt = now
		changed = append(changed, *s)
	}
	return changed, nil
}

func (r *SaleRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	kept := r.order[:0]
	for _, id := range r.order {
		s := r.sales[id]
		if (s.Status == domain.SaleStatusRefunded || s.Status == domain.SaleStatusFailed) && s.UpdatedAt.Before(before) {
			delete(r.sales, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return n, nil
}

func (r *SaleRepo) Stats(ctx context.Context) (*domain.SalesStats, error) {
	st := &domain.SalesStats{}

	r.mu.RLock()
	for _, s := range r.sales {
		st.TotalSales++
		switch s.Status {
		case domain.SaleStatusCompleted:
			st.CompletedSales++
			st.TotalAmount = st.TotalAmount.Add(s.Amount)
			st.TotalCommission = st.TotalCommission.Add(s.Commission)
			if s.Synced {
				st.SyncedSales++
			} else {
				st.PendingSync++
			}
		case domain.SaleStatusRefunded:
			st.RefundedSales++
		}
	}
	r.mu.RUnlock()

	if r.creds != nil {
		active, _ := r.creds.List(ctx, true)
		st.ActiveMerchants = int64(len(active))
	}
	if r.owners != nil {
		r.owners.mu.RLock()
		sites := make(map[int64]struct{})
		for key := range r.owners.items {
			sites[key.listingSiteID] = struct{}{}
		}
		st.TotalProducts = int64(len(r.owners.items))
		st.ActiveSites = int64(len(sites))
		r.owners.mu.RUnlock()
	}
	return st, nil
}

func (r *SaleRepo) filter(limit int, keep func(*domain.Sale) bool) []domain.Sale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Sale
	for _, id := range r.order {
		s := r.sales[id]
		if !keep(s) {
			continue
		}
		out = append(out, *s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
