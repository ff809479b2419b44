// Package memory holds in-process implementations of the storage ports. They
// back the "memory" storage driver for local runs and the end-to-end tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"multi-merchant-settlement/internal/core/domain"
)

// --- Credentials ---

type CredentialRepo struct {
	mu    sync.RWMutex
	creds map[domain.MerchantRef]domain.MerchantCredential
}

func NewCredentialRepo() *CredentialRepo {
	return &CredentialRepo{creds: make(map[domain.MerchantRef]domain.MerchantCredential)}
}

func (r *CredentialRepo) Upsert(ctx context.Context, c *domain.MerchantCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.creds[c.Ref()]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	}
	r.creds[c.Ref()] = *c
	return nil
}

func (r *CredentialRepo) Get(ctx context.Context, ref domain.MerchantRef) (*domain.MerchantCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.creds[ref]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *CredentialRepo) List(ctx context.Context, activeOnly bool) ([]domain.MerchantCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.MerchantCredential
	for _, c := range r.creds {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].SiteID < out[j].SiteID
	})
	return out, nil
}

func (r *CredentialRepo) SetActive(ctx context.Context, ref domain.MerchantRef, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[ref]
	if !ok {
		return fmt.Errorf("credential %s: %w", ref, domain.ErrNotFound)
	}
	c.Active = active
	c.UpdatedAt = time.Now().UTC()
	r.creds[ref] = c
	return nil
}

func (r *CredentialRepo) Delete(ctx context.Context, ref domain.MerchantRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[ref]; !ok {
		return fmt.Errorf("credential %s: %w", ref, domain.ErrNotFound)
	}
	delete(r.creds, ref)
	return nil
}

// --- Ownership ---

type ownershipKey struct {
	productID     int64
	listingSiteID int64
}

type OwnershipRepo struct {
	mu    sync.RWMutex
	items map[ownershipKey]domain.ProductOwnership
}

func NewOwnershipRepo() *OwnershipRepo {
	return &OwnershipRepo{items: make(map[ownershipKey]domain.ProductOwnership)}
}

func (r *OwnershipRepo) Upsert(ctx context.Context, o *domain.ProductOwnership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ownershipKey{o.ProductID, o.ListingSiteID}
	if existing, ok := r.items[key]; ok {
		o.ID = existing.ID
		o.CreatedAt = existing.CreatedAt
	}
	r.items[key] = *o
	return nil
}

func (r *OwnershipRepo) Get(ctx context.Context, productID, listingSiteID int64) (*domain.ProductOwnership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.items[ownershipKey{productID, listingSiteID}]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *OwnershipRepo) ListByMerchant(ctx context.Context, userID int64) ([]domain.ProductOwnership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ProductOwnership
	for _, o := range r.items {
		if o.OwnerUserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ListingSiteID != out[j].ListingSiteID {
			return out[i].ListingSiteID < out[j].ListingSiteID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (r *OwnershipRepo) Delete(ctx context.Context, productID, listingSiteID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ownershipKey{productID, listingSiteID}
	if _, ok := r.items[key]; !ok {
		return fmt.Errorf("ownership %d@%d: %w", productID, listingSiteID, domain.ErrNotFound)
	}
	delete(r.items, key)
	return nil
}

// --- Audit ---

type AuditRepo struct {
	mu   sync.Mutex
	logs []domain.AuditLog
}

func NewAuditRepo() *AuditRepo {
	return &AuditRepo{}
}

func (r *AuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

// Entries returns a copy of every recorded entry.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLog(nil), r.logs...)
}
