package postgres

import (
	"context"
	"errors"
	"fmt"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const credentialColumns = `id, user_id, site_id, processor_username, processor_password_enc, processor_api_key_enc, is_active, created_at, updated_at`

// CredentialRepo implements ports.CredentialRepository.
type CredentialRepo struct {
	pool Pool
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(pool Pool) *CredentialRepo {
	return &CredentialRepo{pool: pool}
}

// Upsert inserts or replaces the credential of a (user, site) pair. The
// stored id and created_at win on conflict and are written back to c.
func (r *CredentialRepo) Upsert(ctx context.Context, c *domain.MerchantCredential) error {
	query := `INSERT INTO merchant_credentials (` + credentialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, site_id) DO UPDATE SET
			processor_username = EXCLUDED.processor_username,
			processor_password_enc = EXCLUDED.processor_password_enc,
			processor_api_key_enc = EXCLUDED.processor_api_key_enc,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		c.ID, c.UserID, c.SiteID, c.Username, c.PasswordEnc, c.APIKeyEnc,
		c.Active, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// Get fetches the credential for a merchant. Returns nil, nil when absent.
func (r *CredentialRepo) Get(ctx context.Context, ref domain.MerchantRef) (*domain.MerchantCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM merchant_credentials WHERE user_id = $1 AND site_id = $2`

	c, err := scanCredential(r.pool.QueryRow(ctx, query, ref.UserID, ref.SiteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return c, nil
}

// List returns credentials ordered by merchant, optionally only active ones.
func (r *CredentialRepo) List(ctx context.Context, activeOnly bool) ([]domain.MerchantCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM merchant_credentials
		WHERE ($1 = FALSE OR is_active = TRUE)
		ORDER BY user_id, site_id`

	rows, err := r.pool.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []domain.MerchantCredential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, *c)
	}
	return creds, rows.Err()
}

// SetActive toggles the soft-delete flag.
func (r *CredentialRepo) SetActive(ctx context.Context, ref domain.MerchantRef, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE merchant_credentials SET is_active = $3, updated_at = NOW() WHERE user_id = $1 AND site_id = $2`,
		ref.UserID, ref.SiteID, active,
	)
	if err != nil {
		return fmt.Errorf("set credential active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credential %s: %w", ref, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the credential row.
func (r *CredentialRepo) Delete(ctx context.Context, ref domain.MerchantRef) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM merchant_credentials WHERE user_id = $1 AND site_id = $2`,
		ref.UserID, ref.SiteID,
	)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credential %s: %w", ref, domain.ErrNotFound)
	}
	return nil
}

func scanCredential(row pgx.Row) (*domain.MerchantCredential, error) {
	c := &domain.MerchantCredential{}
	err := row.Scan(
		&c.ID, &c.UserID, &c.SiteID, &c.Username, &c.PasswordEnc, &c.APIKeyEnc,
		&c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}
