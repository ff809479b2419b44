package service

import (
	"context"
	"fmt"

	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/apperror"
	"multi-merchant-settlement/pkg/logger"

	"github.com/rs/zerolog"
)

// CredentialRevealer decrypts stored processor secrets.
type CredentialRevealer interface {
	Reveal(cred *domain.MerchantCredential) (domain.ProcessorCredentials, error)
}

type ownershipResolver struct {
	owners   ports.OwnershipRepository
	creds    ports.CredentialRepository
	revealer CredentialRevealer
	log      zerolog.Logger
}

// NewOwnershipResolver binds cart lines to the merchants that get paid for them.
func NewOwnershipResolver(
	owners ports.OwnershipRepository,
	creds ports.CredentialRepository,
	revealer CredentialRevealer,
	log zerolog.Logger,
) ports.OwnershipResolver {
	return &ownershipResolver{
		owners:   owners,
		creds:    creds,
		revealer: revealer,
		log:      logger.Component(log, "resolver"),
	}
}

// Resolve is valid only when every item maps to an active credential with a
// username and password. Store failures are returned as errors; everything
// else lands in InvalidItems.
func (r *ownershipResolver) Resolve(ctx context.Context, listingSiteID int64, items []domain.CartItem) (*ports.Resolution, error) {
	res := &ports.Resolution{PerItemMerchant: make(map[int64]ports.ResolvedItem, len(items))}

	// Several items of one merchant share a credential lookup.
	credCache := make(map[domain.MerchantRef]*domain.MerchantCredential)

	for _, item := range items {
		ownership, err := r.owners.Get(ctx, item.ProductID, listingSiteID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get ownership for product %d: %w", item.ProductID, err))
		}
		if ownership == nil {
			r.log.Warn().Int64("product_id", item.ProductID).Int64("listing_site_id", listingSiteID).Msg("no product ownership")
			res.InvalidItems = append(res.InvalidItems, item.Name)
			continue
		}

		owner := ownership.Owner()
		cred, cached := credCache[owner]
		if !cached {
			cred, err = r.creds.Get(ctx, owner)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("get credential %s: %w", owner, err))
			}
			credCache[owner] = cred
		}
		if cred == nil || !cred.IsUsable() {
			r.log.Warn().Int64("product_id", item.ProductID).Str("merchant", owner.String()).Msg("merchant credential missing or inactive")
			res.InvalidItems = append(res.InvalidItems, item.Name)
			continue
		}

		secrets, err := r.revealer.Reveal(cred)
		if err != nil || !secrets.IsComplete() {
			r.log.Error().Err(err).Str("merchant", owner.String()).Msg("merchant credential unusable")
			res.InvalidItems = append(res.InvalidItems, item.Name)
			continue
		}

		res.PerItemMerchant[item.ItemID] = ports.ResolvedItem{
			Item:        item,
			Ownership:   ownership,
			Credential:  cred,
			Credentials: secrets,
		}
	}

	res.Valid = len(res.InvalidItems) == 0
	return res, nil
}
