package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ownershipService struct {
	repo    ports.OwnershipRepository
	ledgers ports.LedgerProvider
	log     zerolog.Logger
}

// NewOwnershipService creates the product ownership service. Assigned
// products are also registered in the owner's ledger catalogue so synced
// orders carry a real product line; ledgers may be nil.
func NewOwnershipService(repo ports.OwnershipRepository, ledgers ports.LedgerProvider, log zerolog.Logger) ports.OwnershipService {
	return &ownershipService{
		repo:    repo,
		ledgers: ledgers,
		log:     log.With().Str("component", "ownership").Logger(),
	}
}

func (s *ownershipService) Assign(ctx context.Context, req ports.AssignOwnershipRequest) (*domain.ProductOwnership, error) {
	if req.ProductID <= 0 || req.ListingSiteID <= 0 {
		return nil, apperror.Validation("product id and listing site id are required")
	}
	if req.Owner.UserID <= 0 || req.Owner.SiteID <= 0 {
		return nil, apperror.Validation("owner user id and site id are required")
	}
	if !domain.ValidCommissionRate(req.CommissionRate) {
		return nil, apperror.Validation("commission rate must be between 0 and 100 with at most two decimals")
	}

	now := time.Now().UTC()
	o := &domain.ProductOwnership{
		ID:             uuid.New(),
		ProductID:      req.ProductID,
		OwnerUserID:    req.Owner.UserID,
		OwnerSiteID:    req.Owner.SiteID,
		ListingSiteID:  req.ListingSiteID,
		CommissionRate: req.CommissionRate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Upsert(ctx, o); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert ownership: %w", err))
	}

	s.registerProduct(ctx, req)
	return o, nil
}

// registerProduct is best-effort: without it the sync writes the fallback line.
func (s *ownershipService) registerProduct(ctx context.Context, req ports.AssignOwnershipRequest) {
	if s.ledgers == nil {
		return
	}
	name := req.ProductName
	if name == "" {
		name = fmt.Sprintf("Product #%d", req.ProductID)
	}

	log := s.log.With().Int64("product_id", req.ProductID).Str("merchant", req.Owner.String()).Logger()
	ledger, err := s.ledgers.ForMerchant(ctx, req.Owner)
	if err != nil {
		log.Warn().Err(err).Msg("open merchant ledger for product registration")
		return
	}
	if err := ledger.UpsertProduct(ctx, req.ProductID, name); err != nil {
		log.Warn().Err(err).Msg("register product in merchant ledger")
	}
}

func (s *ownershipService) Remove(ctx context.Context, productID, listingSiteID int64) error {
	err := s.repo.Delete(ctx, productID, listingSiteID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return apperror.ErrNotFound("Product ownership")
	default:
		return apperror.InternalError(err)
	}
}

func (s *ownershipService) ListByMerchant(ctx context.Context, userID int64) ([]domain.ProductOwnership, error) {
	owned, err := s.repo.ListByMerchant(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return owned, nil
}
