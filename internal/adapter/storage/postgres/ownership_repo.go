package postgres

import (
	"context"
	"errors"
	"fmt"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const ownershipColumns = `id, product_id, owner_user_id, owner_site_id, listing_site_id, commission_rate, created_at, updated_at`

// OwnershipRepo implements ports.OwnershipRepository.
type OwnershipRepo struct {
	pool Pool
}

// NewOwnershipRepo creates a new OwnershipRepo.
func NewOwnershipRepo(pool Pool) *OwnershipRepo {
	return &OwnershipRepo{pool: pool}
}

// Upsert binds a product on a listing site to its owner.
func (r *OwnershipRepo) Upsert(ctx context.Context, o *domain.ProductOwnership) error {
	query := `INSERT INTO product_ownership (` + ownershipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, listing_site_id) DO UPDATE SET
			owner_user_id = EXCLUDED.owner_user_id,
			owner_site_id = EXCLUDED.owner_site_id,
			commission_rate = EXCLUDED.commission_rate,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		o.ID, o.ProductID, o.OwnerUserID, o.OwnerSiteID, o.ListingSiteID,
		o.CommissionRate, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert ownership: %w", err)
	}
	return nil
}

// Get fetches the ownership of a product on a listing site. Returns nil, nil when absent.
func (r *OwnershipRepo) Get(ctx context.Context, productID, listingSiteID int64) (*domain.ProductOwnership, error) {
	query := `SELECT ` + ownershipColumns + ` FROM product_ownership WHERE product_id = $1 AND listing_site_id = $2`

	o, err := scanOwnership(r.pool.QueryRow(ctx, query, productID, listingSiteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ownership: %w", err)
	}
	return o, nil
}

// ListByMerchant returns every product owned by a user across sites.
func (r *OwnershipRepo) ListByMerchant(ctx context.Context, userID int64) ([]domain.ProductOwnership, error) {
	query := `SELECT ` + ownershipColumns + ` FROM product_ownership
		WHERE owner_user_id = $1
		ORDER BY listing_site_id, product_id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list ownership: %w", err)
	}
	defer rows.Close()

	var out []domain.ProductOwnership
	for rows.Next() {
		o, err := scanOwnership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ownership: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// Delete removes the binding; the product can no longer be charged.
func (r *OwnershipRepo) Delete(ctx context.Context, productID, listingSiteID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM product_ownership WHERE product_id = $1 AND listing_site_id = $2`,
		productID, listingSiteID,
	)
	if err != nil {
		return fmt.Errorf("delete ownership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ownership %d@%d: %w", productID, listingSiteID, domain.ErrNotFound)
	}
	return nil
}

func scanOwnership(row pgx.Row) (*domain.ProductOwnership, error) {
	o := &domain.ProductOwnership{}
	err := row.Scan(
		&o.ID, &o.ProductID, &o.OwnerUserID, &o.OwnerSiteID, &o.ListingSiteID,
		&o.CommissionRate, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}
