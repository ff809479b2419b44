package service

import (
	"context"
	"fmt"
	"testing"

	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/internal/core/ports/mocks"
	"multi-merchant-settlement/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestOwnershipService_Assign(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockOwnershipRepository(ctrl)
	svc := NewOwnershipService(repo, nil, zerolog.Nop())

	repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil)

	o, err := svc.Assign(context.Background(), ports.AssignOwnershipRequest{
		ProductID:      55,
		ListingSiteID:  1,
		Owner:          testMerchant,
		CommissionRate: decimal.RequireFromString("12.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, testMerchant, o.Owner())
	assert.Equal(t, "12.5", o.CommissionRate.String())
}

func TestOwnershipService_Assign_RegistersProductInOwnerLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockOwnershipRepository(ctrl)
	ledgers := mocks.NewMockLedgerProvider(ctrl)
	ledger := mocks.NewMockMerchantLedger(ctrl)
	svc := NewOwnershipService(repo, ledgers, zerolog.Nop())

	repo.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	ledgers.EXPECT().ForMerchant(gomock.Any(), testMerchant).Return(ledger, nil).Times(2)
	ledger.EXPECT().UpsertProduct(gomock.Any(), int64(55), "Mug").Return(nil)
	ledger.EXPECT().UpsertProduct(gomock.Any(), int64(56), "Product #56").Return(fmt.Errorf("disk full"))

	_, err := svc.Assign(context.Background(), ports.AssignOwnershipRequest{
		ProductID: 55, ListingSiteID: 1, Owner: testMerchant, CommissionRate: decimal.NewFromInt(10), ProductName: "Mug",
	})
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), ports.AssignOwnershipRequest{
		ProductID: 56, ListingSiteID: 1, Owner: testMerchant, CommissionRate: decimal.NewFromInt(10),
	})
	assert.NoError(t, err, "catalogue registration failures do not fail the assignment")
}

func TestOwnershipService_Assign_Validation(t *testing.T) {
	svc := NewOwnershipService(mocks.NewMockOwnershipRepository(gomock.NewController(t)), nil, zerolog.Nop())

	base := ports.AssignOwnershipRequest{ProductID: 55, ListingSiteID: 1, Owner: testMerchant, CommissionRate: decimal.NewFromInt(10)}
	tests := []struct {
		name   string
		mutate func(r *ports.AssignOwnershipRequest)
	}{
		{"missing product", func(r *ports.AssignOwnershipRequest) { r.ProductID = 0 }},
		{"missing owner", func(r *ports.AssignOwnershipRequest) { r.Owner = domain.MerchantRef{} }},
		{"rate above 100", func(r *ports.AssignOwnershipRequest) { r.CommissionRate = decimal.NewFromInt(101) }},
		{"negative rate", func(r *ports.AssignOwnershipRequest) { r.CommissionRate = decimal.NewFromInt(-1) }},
		{"three decimals", func(r *ports.AssignOwnershipRequest) { r.CommissionRate = decimal.RequireFromString("10.125") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := svc.Assign(context.Background(), req)
			assert.True(t, apperror.HasPrefix(err, "VAL_000"))
		})
	}
}

func TestOwnershipService_Remove(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockOwnershipRepository(ctrl)
	svc := NewOwnershipService(repo, nil, zerolog.Nop())

	repo.EXPECT().Delete(gomock.Any(), int64(55), int64(1)).Return(nil)
	assert.NoError(t, svc.Remove(context.Background(), 55, 1))

	repo.EXPECT().Delete(gomock.Any(), int64(56), int64(1)).Return(fmt.Errorf("ownership: %w", domain.ErrNotFound))
	assert.True(t, apperror.HasPrefix(svc.Remove(context.Background(), 56, 1), "VAL_007"))
}

func TestOwnershipService_ListByMerchant(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockOwnershipRepository(ctrl)
	svc := NewOwnershipService(repo, nil, zerolog.Nop())

	repo.EXPECT().ListByMerchant(gomock.Any(), int64(7)).Return([]domain.ProductOwnership{{ProductID: 55}}, nil)

	owned, err := svc.ListByMerchant(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}
