package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"multi-merchant-settlement/internal/adapter/storage/memory"
	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/internal/core/ports/mocks"
	"multi-merchant-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	merchantA = domain.MerchantRef{UserID: 7, SiteID: 3}
	merchantB = domain.MerchantRef{UserID: 8, SiteID: 4}

	credsA = domain.ProcessorCredentials{Username: "merchant-a", Password: "pass-a"}
	credsB = domain.ProcessorCredentials{Username: "merchant-b", Password: "pass-b"}

	testCard = domain.Card{Number: "4111 1111 1111 1111", Expiry: "12/29", CVC: "123"}
)

const (
	testOrderID     = int64(1001)
	testListingSite = int64(1)
)

type settlementTestDeps struct {
	svc      *SettlementServiceImpl
	shop     *memory.Shop
	sales    *memory.SaleRepo
	creds    *memory.CredentialRepo
	owners   *memory.OwnershipRepo
	locks    *memory.LockStore
	gateway  *mocks.MockProcessorGateway
	notifier *mocks.MockNotifier
	sink     *mocks.MockSettlementEventSink
	credSvc  ports.CredentialService
}

func setupSettlementService(t *testing.T) *settlementTestDeps {
	ctrl := gomock.NewController(t)

	enc, err := NewAESEncryptionService(testAESKey)
	require.NoError(t, err)

	d := &settlementTestDeps{
		shop:     memory.NewShop(),
		creds:    memory.NewCredentialRepo(),
		owners:   memory.NewOwnershipRepo(),
		locks:    memory.NewLockStore(),
		gateway:  mocks.NewMockProcessorGateway(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
		sink:     mocks.NewMockSettlementEventSink(ctrl),
	}
	d.sales = memory.NewSaleRepo(d.creds, d.owners)
	d.credSvc = NewCredentialService(d.creds, enc, d.gateway)

	d.svc = NewSettlementService(SettlementDeps{
		Orders:   d.shop,
		Resolver: NewOwnershipResolver(d.owners, d.creds, d.credSvc, zerolog.Nop()),
		Gateway:  d.gateway,
		Sales:    d.sales,
		Creds:    d.creds,
		Revealer: d.credSvc,
		Hooks:    d.shop,
		Locks:    d.locks,
		Cache:    memory.NewSettlementCache(),
		Sink:     d.sink,
		Notifier: d.notifier,
	}, SettlementOptions{}, zerolog.Nop())
	d.svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return d
}

func (d *settlementTestDeps) addMerchant(t *testing.T, ref domain.MerchantRef, creds domain.ProcessorCredentials) {
	t.Helper()
	_, err := d.credSvc.Save(context.Background(), ports.SaveCredentialRequest{
		Merchant: ref,
		Username: creds.Username,
		Password: creds.Password,
		Active:   true,
	})
	require.NoError(t, err)
}

func (d *settlementTestDeps) addProduct(t *testing.T, productID int64, owner domain.MerchantRef, rate string) {
	t.Helper()
	require.NoError(t, d.owners.Upsert(context.Background(), &domain.ProductOwnership{
		ID:             uuid.New(),
		ProductID:      productID,
		OwnerUserID:    owner.UserID,
		OwnerSiteID:    owner.SiteID,
		ListingSiteID:  testListingSite,
		CommissionRate: decimal.RequireFromString(rate),
	}))
}

func (d *settlementTestDeps) putOrder(items ...domain.LineItem) {
	d.shop.PutOrder(domain.Order{
		ID:            testOrderID,
		ListingSiteID: testListingSite,
		CustomerID:    42,
		Billing:       domain.Address{FirstName: "Ada", LastName: "Lovelace", Country: "GB"},
		CustomerIP:    "203.0.113.9",
		Items:         items,
	})
}

func lineItem(itemID, productID int64, name, total string) domain.LineItem {
	return domain.LineItem{ItemID: itemID, ProductID: productID, Name: name, Quantity: 1, Total: decimal.RequireFromString(total)}
}

func approved(txnID string) *ports.ProcessorResult {
	return &ports.ProcessorResult{Outcome: ports.OutcomeApproved, TransactionID: txnID, Message: "Payment successful"}
}

func settleRequest() ports.SettleRequest {
	return ports.SettleRequest{OrderID: testOrderID, Card: testCard}
}

func assertAppErrorCode(t *testing.T, err error, code string) *apperror.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// ==================== Settle Tests ====================

func TestSettlementService_Settle_SingleItem(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addProduct(t, 55, merchantA, "10")
	d.putOrder(lineItem(1, 55, "Mug", "42.00"))

	ctx := context.Background()

	d.gateway.EXPECT().Charge(gomock.Any(), credsA, gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ domain.ProcessorCredentials, req ports.ChargeRequest) *ports.ProcessorResult {
			assert.Equal(t, testOrderID, req.OrderID)
			assert.Equal(t, "42.00", req.Amount.StringFixed(2))
			assert.Equal(t, "203.0.113.9", req.CustomerIP)
			assert.Equal(t, "Ada", req.Billing.FirstName)
			return approved("T1")
		})
	d.notifier.EXPECT().NotifyPaymentConfirmation(gomock.Any(), merchantA, testOrderID, gomock.Any(), []string{"T1"}).
		DoAndReturn(func(_ context.Context, _ domain.MerchantRef, _ int64, total decimal.Decimal, _ []string) error {
			assert.Equal(t, "42.00", total.StringFixed(2))
			return nil
		})

	var event domain.SettlementCompletedEvent
	d.sink.EXPECT().OnSettlementCompleted(gomock.Any(), gomock.Any()).Do(
		func(_ context.Context, e domain.SettlementCompletedEvent) { event = e })

	result, err := d.svc.Settle(ctx, settleRequest())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"T1"}, result.TransactionIDs)
	assert.Equal(t, "42.00", result.TotalCharged.StringFixed(2))
	assert.Equal(t, "/checkout/order-received/1001", result.RedirectURL)

	sales, err := d.sales.ListByOrder(ctx, testOrderID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, domain.SaleStatusCompleted, sales[0].Status)
	assert.Equal(t, "42.00", sales[0].Amount.StringFixed(2))
	assert.Equal(t, "4.20", sales[0].Commission.StringFixed(2))
	assert.Equal(t, "T1", sales[0].TransactionID)
	assert.Equal(t, merchantA, sales[0].Merchant())
	assert.False(t, sales[0].Synced)

	assert.Equal(t, testOrderID, event.OrderID)
	assert.Equal(t, []uuid.UUID{sales[0].ID}, event.SaleIDs)

	paid, ok := d.shop.PaidWith(testOrderID)
	require.True(t, ok)
	assert.Equal(t, "T1", paid)
	assert.Contains(t, d.shop.Notes(testOrderID),
		"Payment processed via Multi-Merchant gateway. Transaction IDs: T1. Total: $42.00")
}

func TestSettlementService_Settle_TwoMerchantsGroupedConfirmations(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addMerchant(t, merchantB, credsB)
	d.addProduct(t, 55, merchantA, "10")
	d.addProduct(t, 56, merchantA, "10")
	d.addProduct(t, 77, merchantB, "5")
	d.putOrder(
		lineItem(1, 55, "Mug", "10.00"),
		lineItem(2, 77, "Poster", "20.00"),
		lineItem(3, 56, "Cup", "5.50"),
	)

	gomock.InOrder(
		d.gateway.EXPECT().Charge(gomock.Any(), credsA, gomock.Any()).Return(approved("T1")),
		d.gateway.EXPECT().Charge(gomock.Any(), credsB, gomock.Any()).Return(approved("T2")),
		d.gateway.EXPECT().Charge(gomock.Any(), credsA, gomock.Any()).Return(approved("T3")),
	)
	d.notifier.EXPECT().NotifyPaymentConfirmation(gomock.Any(), merchantA, testOrderID, gomock.Any(), []string{"T1", "T3"}).
		DoAndReturn(func(_ context.Context, _ domain.MerchantRef, _ int64, total decimal.Decimal, _ []string) error {
			assert.Equal(t, "15.50", total.StringFixed(2))
			return nil
		})
	d.notifier.EXPECT().NotifyPaymentConfirmation(gomock.Any(), merchantB, testOrderID, gomock.Any(), []string{"T2"}).Return(nil)
	d.sink.EXPECT().OnSettlementCompleted(gomock.Any(), gomock.Any())

	result, err := d.svc.Settle(context.Background(), settleRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2", "T3"}, result.TransactionIDs)
	assert.Equal(t, "35.50", result.TotalCharged.StringFixed(2))
}

func TestSettlementService_Settle_CachedResultSkipsCharging(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addProduct(t, 55, merchantA, "10")
	d.putOrder(lineItem(1, 55, "Mug", "42.00"))

	d.gateway.EXPECT().Charge(gomock.Any(), gomock.Any(), gomock.Any()).Return(approved("T1")).Times(1)
	d.notifier.EXPECT().NotifyPaymentConfirmation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.sink.EXPECT().OnSettlementCompleted(gomock.Any(), gomock.Any()).Times(1)

	first, err := d.svc.Settle(context.Background(), settleRequest())
	require.NoError(t, err)

	second, err := d.svc.Settle(context.Background(), settleRequest())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSettlementService_Settle_MissingOwnership(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addProduct(t, 55, merchantA, "10")
	d.putOrder(lineItem(1, 55, "Mug", "42.00"), lineItem(2, 99, "Orphan Poster", "8.00"))

	// No gateway expectations: any processor call fails the test.
	_, err := d.svc.Settle(context.Background(), settleRequest())
	appErr := assertAppErrorCode(t, err, "CFG_001")
	assert.Contains(t, appErr.Message, "Orphan Poster")

	sales, err := d.sales.ListByOrder(context.Background(), testOrderID)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestSettlementService_Settle_InactiveCredential(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addProduct(t, 55, merchantA, "10")
	d.putOrder(lineItem(1, 55, "Mug", "42.00"))
	require.NoError(t, d.creds.SetActive(context.Background(), merchantA, false))

	_, err := d.svc.Settle(context.Background(), settleRequest())
	assertAppErrorCode(t, err, "CFG_001")
}

func TestSettlementService_Settle_SecondItemDeclined(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addMerchant(t, merchantB, credsB)
	d.addProduct(t, 55, merchantA, "10")
	d.addProduct(t, 77, merchantB, "5")
	d.putOrder(lineItem(1, 55, "Mug", "30.00"), lineItem(2, 77, "Poster", "70.00"))

	declineMsg := "Insufficient funds. Please use a different card."
	gomock.InOrder(
		d.gateway.EXPECT().Charge(gomock.Any(), credsA, gomock.Any()).Return(approved("T1")),
		d.gateway.EXPECT().Charge(gomock.Any(), credsB, gomock.Any()).Return(&ports.ProcessorResult{
			Outcome: ports.OutcomeDeclined, Message: declineMsg, RawText: "Insufficient funds", Curated: true,
		}),
		d.gateway.EXPECT().Void(gomock.Any(), credsA, "T1").Return(approved("T1")),
	)

	_, err := d.svc.Settle(context.Background(), settleRequest())
	appErr := assertAppErrorCode(t, err, "SET_001")
	assert.Equal(t, declineMsg, appErr.Message)
	assert.True(t, apperror.HasPrefix(appErr.Err, "DEC_"))

	sales, err := d.sales.ListByOrder(context.Background(), testOrderID)
	require.NoError(t, err)
	assert.Empty(t, sales)

	_, paid := d.shop.PaidWith(testOrderID)
	assert.False(t, paid)
	assert.Empty(t, d.shop.Notes(testOrderID))
}

func TestSettlementService_Settle_VoidFailureKeepsOriginalError(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addMerchant(t, merchantB, credsB)
	d.addProduct(t, 55, merchantA, "10")
	d.addProduct(t, 77, merchantB, "5")
	d.putOrder(lineItem(1, 55, "Mug", "30.00"), lineItem(2, 77, "Poster", "70.00"))

	gomock.InOrder(
		d.gateway.EXPECT().Charge(gomock.Any(), credsA, gomock.Any()).Return(approved("T1")),
		d.gateway.EXPECT().Charge(gomock.Any(), credsB, gomock.Any()).Return(&ports.ProcessorResult{
			Outcome: ports.OutcomeError, Message: "Unable to connect to payment processor. Please try again.", RawText: "dial tcp: timeout",
		}),
		d.gateway.EXPECT().Void(gomock.Any(), credsA, "T1").Return(&ports.ProcessorResult{
			Outcome: ports.OutcomeError, RawText: "Transaction already settled",
		}),
	)

	_, err := d.svc.Settle(context.Background(), settleRequest())
	appErr := assertAppErrorCode(t, err, "SET_001")
	assert.True(t, apperror.HasPrefix(appErr.Err, "PRC_001"))

	sales, err := d.sales.ListByOrder(context.Background(), testOrderID)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestSettlementService_Settle_FailureAtItemKVoidsEarlierCharges(t *testing.T) {
	const items = 4

	for k := 1; k <= items; k++ {
		t.Run(fmt.Sprintf("fails at item %d", k), func(t *testing.T) {
			d := setupSettlementService(t)
			d.addMerchant(t, merchantA, credsA)
			d.addMerchant(t, merchantB, credsB)

			var lines []domain.LineItem
			for i := int64(1); i <= items; i++ {
				owner := merchantA
				if i%2 == 0 {
					owner = merchantB
				}
				d.addProduct(t, 100+i, owner, "10")
				lines = append(lines, lineItem(i, 100+i, fmt.Sprintf("Item %d", i), "10.00"))
			}
			d.putOrder(lines...)

			charged := 0
			d.gateway.EXPECT().Charge(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ domain.ProcessorCredentials, _ ports.ChargeRequest) *ports.ProcessorResult {
					charged++
					if charged == k {
						return &ports.ProcessorResult{Outcome: ports.OutcomeDeclined, Message: "Payment was declined."}
					}
					return approved(fmt.Sprintf("T%d", charged))
				}).Times(k)

			var voided []string
			d.gateway.EXPECT().Void(gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ domain.ProcessorCredentials, txnID string) *ports.ProcessorResult {
					voided = append(voided, txnID)
					return approved(txnID)
				}).Times(k - 1)

			_, err := d.svc.Settle(context.Background(), settleRequest())
			if k == 1 {
				assertAppErrorCode(t, err, "DEC_001")
			} else {
				assertAppErrorCode(t, err, "SET_001")
			}

			var want []string
			for i := 1; i < k; i++ {
				want = append(want, fmt.Sprintf("T%d", i))
			}
			assert.ElementsMatch(t, want, voided)

			sales, err := d.sales.ListByOrder(context.Background(), testOrderID)
			require.NoError(t, err)
			for _, sale := range sales {
				assert.NotEqual(t, domain.SaleStatusCompleted, sale.Status)
			}

			_, paid := d.shop.PaidWith(testOrderID)
			assert.False(t, paid)
		})
	}
}

func TestSettlementService_Settle_FirstItemFailsNeedsNoVoid(t *testing.T) {
	tests := []struct {
		name   string
		result *ports.ProcessorResult
		code   string
	}{
		{"declined", &ports.ProcessorResult{Outcome: ports.OutcomeDeclined, Message: "Payment was declined."}, "DEC_001"},
		{"curated error", &ports.ProcessorResult{Outcome: ports.OutcomeError, Message: "Invalid card number.", RawText: "Invalid Credit Card Number", Curated: true}, "PRC_002"},
		{"transport error", &ports.ProcessorResult{Outcome: ports.OutcomeError, Message: "Unable to connect", RawText: "EOF"}, "PRC_001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupSettlementService(t)
			d.addMerchant(t, merchantA, credsA)
			d.addProduct(t, 55, merchantA, "10")
			d.putOrder(lineItem(1, 55, "Mug", "42.00"))

			d.gateway.EXPECT().Charge(gomock.Any(), credsA, gomock.Any()).Return(tt.result)

			_, err := d.svc.Settle(context.Background(), settleRequest())
			assertAppErrorCode(t, err, tt.code)
		})
	}
}

func TestSettlementService_Settle_InvalidCard(t *testing.T) {
	tests := []struct {
		name string
		card domain.Card
		code string
	}{
		{"missing fields", domain.Card{Number: "4111111111111111"}, "VAL_005"},
		{"luhn failure", domain.Card{Number: "4111111111111112", Expiry: "12/29", CVC: "123"}, "VAL_001"},
		{"bad expiry format", domain.Card{Number: "4111111111111111", Expiry: "13/29", CVC: "123"}, "VAL_002"},
		{"expired", domain.Card{Number: "4111111111111111", Expiry: "01/24", CVC: "123"}, "VAL_003"},
		{"short cvc", domain.Card{Number: "4111111111111111", Expiry: "12/29", CVC: "1"}, "VAL_004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupSettlementService(t)
			_, err := d.svc.Settle(context.Background(), ports.SettleRequest{OrderID: testOrderID, Card: tt.card})
			assertAppErrorCode(t, err, tt.code)
		})
	}
}

func TestSettlementService_Settle_OrderNotFound(t *testing.T) {
	d := setupSettlementService(t)
	_, err := d.svc.Settle(context.Background(), settleRequest())
	assertAppErrorCode(t, err, "VAL_007")
}

func TestSettlementService_Settle_AlreadySettled(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addProduct(t, 55, merchantA, "10")
	d.putOrder(lineItem(1, 55, "Mug", "42.00"))
	require.NoError(t, d.sales.Create(context.Background(), &domain.Sale{
		ID: uuid.New(), OrderID: testOrderID, ProductID: 55,
		MerchantUserID: merchantA.UserID, MerchantSiteID: merchantA.SiteID,
		Amount: decimal.RequireFromString("42.00"), TransactionID: "T0",
		Status: domain.SaleStatusCompleted,
	}))

	_, err := d.svc.Settle(context.Background(), settleRequest())
	assertAppErrorCode(t, err, "SET_002")
}

func TestSettlementService_Settle_InProgress(t *testing.T) {
	d := setupSettlementService(t)
	d.putOrder(lineItem(1, 55, "Mug", "42.00"))

	held, err := d.locks.Acquire(context.Background(), "settle:1001", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	_, err = d.svc.Settle(context.Background(), settleRequest())
	assertAppErrorCode(t, err, "SET_003")
}

func TestSettlementService_Settle_ZeroTotalLinesSkipped(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addProduct(t, 55, merchantA, "10")
	d.addProduct(t, 56, merchantA, "10")
	d.putOrder(lineItem(1, 55, "Mug", "42.00"), lineItem(2, 56, "Free Sticker", "0.00"))

	d.gateway.EXPECT().Charge(gomock.Any(), credsA, gomock.Any()).Return(approved("T1")).Times(1)
	d.notifier.EXPECT().NotifyPaymentConfirmation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.sink.EXPECT().OnSettlementCompleted(gomock.Any(), gomock.Any())

	result, err := d.svc.Settle(context.Background(), settleRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, result.TransactionIDs)
}

func TestSettlementService_Settle_RepeatedProductChargedOnce(t *testing.T) {
	d := setupSettlementService(t)
	d.addMerchant(t, merchantA, credsA)
	d.addProduct(t, 55, merchantA, "10")
	d.putOrder(lineItem(1, 55, "Mug (red)", "12.00"), lineItem(2, 55, "Mug (blue)", "18.00"))

	d.gateway.EXPECT().Charge(gomock.Any(), credsA, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.ProcessorCredentials, req ports.ChargeRequest) *ports.ProcessorResult {
			assert.Equal(t, "30.00", req.Amount.StringFixed(2))
			return approved("T1")
		}).Times(1)
	d.gateway.EXPECT().Void(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	d.notifier.EXPECT().NotifyPaymentConfirmation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	d.sink.EXPECT().OnSettlementCompleted(gomock.Any(), gomock.Any())

	result, err := d.svc.Settle(context.Background(), settleRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, result.TransactionIDs)
	assert.Equal(t, "30.00", result.TotalCharged.StringFixed(2))

	sales, err := d.sales.ListByOrder(context.Background(), testOrderID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, int64(55), sales[0].ProductID)
	assert.Equal(t, "30.00", sales[0].Amount.StringFixed(2))
	assert.Equal(t, "3.00", sales[0].Commission.StringFixed(2))
	assert.Equal(t, domain.SaleStatusCompleted, sales[0].Status)
}

// ==================== Refund Tests ====================

func seedCompletedSales(t *testing.T, d *settlementTestDeps) (uuid.UUID, uuid.UUID) {
	t.Helper()
	d.addMerchant(t, merchantA, credsA)
	d.addMerchant(t, merchantB, credsB)

	a := &domain.Sale{
		ID: uuid.New(), OrderID: testOrderID, ProductID: 55,
		MerchantUserID: merchantA.UserID, MerchantSiteID: merchantA.SiteID,
		Amount: decimal.RequireFromString("30.00"), TransactionID: "T1",
		Status: domain.SaleStatusCompleted,
	}
	b := &domain.Sale{
		ID: uuid.New(), OrderID: testOrderID, ProductID: 77,
		MerchantUserID: merchantB.UserID, MerchantSiteID: merchantB.SiteID,
		Amount: decimal.RequireFromString("70.00"), TransactionID: "T2",
		Status: domain.SaleStatusCompleted,
	}
	require.NoError(t, d.sales.Create(context.Background(), a))
	require.NoError(t, d.sales.Create(context.Background(), b))
	return a.ID, b.ID
}

func TestSettlementService_Refund_Proportional(t *testing.T) {
	d := setupSettlementService(t)
	d.putOrder(lineItem(1, 55, "Mug", "30.00"), lineItem(2, 77, "Poster", "70.00"))
	idA, idB := seedCompletedSales(t, d)

	refunded := map[string]string{}
	d.gateway.EXPECT().Refund(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), "damaged").
		DoAndReturn(func(_ context.Context, _ domain.ProcessorCredentials, txnID string, amount decimal.Decimal, _ string) *ports.ProcessorResult {
			refunded[txnID] = amount.StringFixed(2)
			return approved("R-" + txnID)
		}).Times(2)
	d.notifier.EXPECT().NotifyRefund(gomock.Any(), gomock.Any(), gomock.Any(), "damaged").Return(nil).Times(2)

	amount := decimal.RequireFromString("50")
	result, err := d.svc.Refund(context.Background(), ports.RefundRequest{
		OrderID: testOrderID, Amount: &amount, Reason: " damaged ", Actor: "admin",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"T1": "15.00", "T2": "35.00"}, refunded)
	assert.Equal(t, "50.00", result.Refunded.StringFixed(2))
	require.Len(t, result.Refunds, 2)
	assert.Equal(t, "R-T1", result.Refunds[0].RefundTransactionID)

	for _, id := range []uuid.UUID{idA, idB} {
		sale, err := d.sales.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.SaleStatusRefunded, sale.Status)
	}
	assert.Contains(t, d.shop.Notes(testOrderID), "Refund processed: $50.00. Reason: damaged")
}

func TestSettlementService_Refund_SmallAmountAcrossManySales(t *testing.T) {
	d := setupSettlementService(t)
	d.putOrder()
	d.addMerchant(t, merchantA, credsA)
	for i := int64(0); i < 6; i++ {
		require.NoError(t, d.sales.Create(context.Background(), &domain.Sale{
			ID: uuid.New(), OrderID: testOrderID, ProductID: 100 + i,
			MerchantUserID: merchantA.UserID, MerchantSiteID: merchantA.SiteID,
			Amount: decimal.RequireFromString("1.00"), TransactionID: fmt.Sprintf("T%d", i),
			Status: domain.SaleStatusCompleted,
		}))
	}

	sent := decimal.Zero
	d.gateway.EXPECT().Refund(gomock.Any(), credsA, gomock.Any(), gomock.Any(), "").
		DoAndReturn(func(_ context.Context, _ domain.ProcessorCredentials, txnID string, amount decimal.Decimal, _ string) *ports.ProcessorResult {
			assert.True(t, amount.IsPositive(), "refund of %s sent for %s", amount, txnID)
			sent = sent.Add(amount)
			return approved("R-" + txnID)
		}).Times(3)
	d.notifier.EXPECT().NotifyRefund(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)

	amount := decimal.RequireFromString("0.03")
	result, err := d.svc.Refund(context.Background(), ports.RefundRequest{OrderID: testOrderID, Amount: &amount})
	require.NoError(t, err)

	assert.Equal(t, "0.03", sent.StringFixed(2))
	assert.Equal(t, "0.03", result.Refunded.StringFixed(2))
	assert.Len(t, result.Refunds, 3)
}

func TestSettlementService_Refund_FullWhenAmountOmitted(t *testing.T) {
	d := setupSettlementService(t)
	d.putOrder()
	seedCompletedSales(t, d)

	gomock.InOrder(
		d.gateway.EXPECT().Refund(gomock.Any(), credsA, "T1", gomock.Any(), "").Return(approved("R1")),
		d.gateway.EXPECT().Refund(gomock.Any(), credsB, "T2", gomock.Any(), "").Return(approved("R2")),
	)
	d.notifier.EXPECT().NotifyRefund(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	result, err := d.svc.Refund(context.Background(), ports.RefundRequest{OrderID: testOrderID})
	require.NoError(t, err)
	assert.Equal(t, "100.00", result.Refunded.StringFixed(2))
	assert.Contains(t, d.shop.Notes(testOrderID), "Refund processed: $100.00.")
}

func TestSettlementService_Refund_InvalidAmount(t *testing.T) {
	d := setupSettlementService(t)
	seedCompletedSales(t, d)

	for _, raw := range []string{"0", "-5", "100.01"} {
		amount := decimal.RequireFromString(raw)
		_, err := d.svc.Refund(context.Background(), ports.RefundRequest{OrderID: testOrderID, Amount: &amount})
		assertAppErrorCode(t, err, "RFD_002")
	}
}

func TestSettlementService_Refund_NoPaymentRecord(t *testing.T) {
	d := setupSettlementService(t)
	_, err := d.svc.Refund(context.Background(), ports.RefundRequest{OrderID: testOrderID})
	assertAppErrorCode(t, err, "RFD_001")
}

func TestSettlementService_Refund_LaterFailureKeepsEarlierRefunds(t *testing.T) {
	d := setupSettlementService(t)
	idA, idB := seedCompletedSales(t, d)

	gomock.InOrder(
		d.gateway.EXPECT().Refund(gomock.Any(), credsA, "T1", gomock.Any(), gomock.Any()).Return(approved("R1")),
		d.gateway.EXPECT().Refund(gomock.Any(), credsB, "T2", gomock.Any(), gomock.Any()).Return(&ports.ProcessorResult{
			Outcome: ports.OutcomeError, Message: "Refund amount may not exceed the transaction balance", RawText: "REFID:3",
		}),
	)
	d.notifier.EXPECT().NotifyRefund(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

	_, err := d.svc.Refund(context.Background(), ports.RefundRequest{OrderID: testOrderID})
	appErr := assertAppErrorCode(t, err, "RFD_003")
	assert.Equal(t, "Refund amount may not exceed the transaction balance", appErr.Message)

	a, err := d.sales.GetByID(context.Background(), idA)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusRefunded, a.Status)
	b, err := d.sales.GetByID(context.Background(), idB)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatusCompleted, b.Status)
}

func TestSettlementService_Refund_MissingCredentials(t *testing.T) {
	d := setupSettlementService(t)
	seedCompletedSales(t, d)
	require.NoError(t, d.creds.Delete(context.Background(), merchantA))

	_, err := d.svc.Refund(context.Background(), ports.RefundRequest{OrderID: testOrderID})
	appErr := assertAppErrorCode(t, err, "RFD_003")
	assert.Equal(t, "Payment configuration error for merchant 7:3", appErr.Message)
}

func TestSettlementService_Refund_InProgress(t *testing.T) {
	d := setupSettlementService(t)
	held, err := d.locks.Acquire(context.Background(), "refund:1001", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	_, err = d.svc.Refund(context.Background(), ports.RefundRequest{OrderID: testOrderID})
	assertAppErrorCode(t, err, "RFD_004")
}
