package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"multi-merchant-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOwnership() *domain.ProductOwnership {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.ProductOwnership{
		ID:             uuid.New(),
		ProductID:      55,
		OwnerUserID:    7,
		OwnerSiteID:    3,
		ListingSiteID:  1,
		CommissionRate: decimal.RequireFromString("10.00"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func ownershipRows(items ...*domain.ProductOwnership) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "product_id", "owner_user_id", "owner_site_id",
		"listing_site_id", "commission_rate", "created_at", "updated_at"})
	for _, o := range items {
		rows.AddRow(o.ID, o.ProductID, o.OwnerUserID, o.OwnerSiteID, o.ListingSiteID,
			o.CommissionRate, o.CreatedAt, o.UpdatedAt)
	}
	return rows
}

func TestOwnershipRepo_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	o := newTestOwnership()
	mock.ExpectQuery("INSERT INTO product_ownership .+ ON CONFLICT \\(product_id, listing_site_id\\)").
		WithArgs(o.ID, o.ProductID, o.OwnerUserID, o.OwnerSiteID, o.ListingSiteID, o.CommissionRate, o.CreatedAt, o.UpdatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(o.ID, o.CreatedAt))

	require.NoError(t, NewOwnershipRepo(mock).Upsert(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnershipRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnershipRepo(mock)
	o := newTestOwnership()

	mock.ExpectQuery("SELECT .+ FROM product_ownership WHERE product_id = \\$1 AND listing_site_id = \\$2").
		WithArgs(o.ProductID, o.ListingSiteID).
		WillReturnRows(ownershipRows(o))
	mock.ExpectQuery("SELECT .+ FROM product_ownership WHERE product_id").
		WithArgs(int64(404), int64(1)).
		WillReturnRows(ownershipRows())

	got, err := repo.Get(context.Background(), o.ProductID, o.ListingSiteID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.MerchantRef{UserID: 7, SiteID: 3}, got.Owner())
	assert.True(t, o.CommissionRate.Equal(got.CommissionRate))

	missing, err := repo.Get(context.Background(), 404, 1)
	assert.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnershipRepo_ListByMerchant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a := newTestOwnership()
	b := newTestOwnership()
	b.ProductID = 56

	mock.ExpectQuery("SELECT .+ FROM product_ownership\\s+WHERE owner_user_id = \\$1").
		WithArgs(int64(7)).
		WillReturnRows(ownershipRows(a, b))

	items, err := NewOwnershipRepo(mock).ListByMerchant(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnershipRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOwnershipRepo(mock)

	mock.ExpectExec("DELETE FROM product_ownership").
		WithArgs(int64(55), int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM product_ownership").
		WithArgs(int64(55), int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, repo.Delete(context.Background(), 55, 1))
	assert.True(t, errors.Is(repo.Delete(context.Background(), 55, 1), domain.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
