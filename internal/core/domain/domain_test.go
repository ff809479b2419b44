package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerchantCredential_IsUsable(t *testing.T) {
	tests := []struct {
		name string
		cred MerchantCredential
		want bool
	}{
		{"active with secrets", MerchantCredential{Active: true, Username: "u", PasswordEnc: "p"}, true},
		{"inactive", MerchantCredential{Active: false, Username: "u", PasswordEnc: "p"}, false},
		{"missing username", MerchantCredential{Active: true, PasswordEnc: "p"}, false},
		{"missing password", MerchantCredential{Active: true, Username: "u"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cred.IsUsable())
		})
	}
}

func TestSaleStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from SaleStatus
		to   SaleStatus
		want bool
	}{
		{SaleStatusPending, SaleStatusCompleted, true},
		{SaleStatusPending, SaleStatusFailed, true},
		{SaleStatusPending, SaleStatusRefunded, false},
		{SaleStatusCompleted, SaleStatusRefunded, true},
		{SaleStatusCompleted, SaleStatusPending, false},
		{SaleStatusCompleted, SaleStatusFailed, false},
		{SaleStatusRefunded, SaleStatusCompleted, false},
		{SaleStatusRefunded, SaleStatusPending, false},
		{SaleStatusFailed, SaleStatusPending, false},
		{SaleStatusFailed, SaleStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSale_NeedsSync(t *testing.T) {
	assert.True(t, (&Sale{Status: SaleStatusCompleted}).NeedsSync())
	assert.False(t, (&Sale{Status: SaleStatusCompleted, Synced: true}).NeedsSync())
	assert.False(t, (&Sale{Status: SaleStatusRefunded}).NeedsSync())
	assert.False(t, (&Sale{Status: SaleStatusPending}).NeedsSync())
}

func TestSalesStats_SyncPercentage(t *testing.T) {
	assert.Equal(t, 0.0, (&SalesStats{}).SyncPercentage())
	assert.Equal(t, 66.67, (&SalesStats{CompletedSales: 3, SyncedSales: 2}).SyncPercentage())
}

func TestValidCommissionRate(t *testing.T) {
	tests := []struct {
		rate string
		want bool
	}{
		{"0", true},
		{"10", true},
		{"12.5", true},
		{"99.99", true},
		{"100", true},
		{"100.01", false},
		{"-1", false},
		{"10.125", false},
	}

	for _, tt := range tests {
		t.Run(tt.rate, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidCommissionRate(decimal.RequireFromString(tt.rate)))
		})
	}
}

func TestDetectCardType(t *testing.T) {
	tests := []struct {
		number string
		want   CardType
	}{
		{"4111111111111111", CardTypeVisa},
		{"5555555555554444", CardTypeMastercard},
		{"378282246310005", CardTypeAmex},
		{"6011111111111117", CardTypeDiscover},
		{"30569309025904", CardTypeDiners},
		{"3530111333300000", CardTypeJCB},
		{"9999999999999995", CardTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCardType(tt.number))
		})
	}
}

func TestLuhnValid_Examples(t *testing.T) {
	assert.True(t, LuhnValid("4111111111111111"))
	assert.True(t, LuhnValid("378282246310005"))
	assert.False(t, LuhnValid("4111111111111112"))
	assert.False(t, LuhnValid("411111111111"), "too short")
	assert.False(t, LuhnValid("41111111111111111111"), "too long")
	assert.False(t, LuhnValid("4111a11111111111"))
}

func TestCard_Validate(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		card Card
		want error
	}{
		{"valid visa", Card{Number: "4111 1111 1111 1111", Expiry: "12/27", CVC: "123"}, nil},
		{"valid amex 4-digit cvc", Card{Number: "3782-822463-10005", Expiry: "06/26", CVC: "1234"}, nil},
		{"current month still valid", Card{Number: "4111111111111111", Expiry: "06/26", CVC: "123"}, nil},
		{"missing number", Card{Expiry: "12/27", CVC: "123"}, ErrCardFieldsMissing},
		{"missing cvc", Card{Number: "4111111111111111", Expiry: "12/27"}, ErrCardFieldsMissing},
		{"bad luhn", Card{Number: "4111111111111112", Expiry: "12/27", CVC: "123"}, ErrCardNumberInvalid},
		{"bad expiry format", Card{Number: "4111111111111111", Expiry: "2027-12", CVC: "123"}, ErrExpiryInvalid},
		{"month 13", Card{Number: "4111111111111111", Expiry: "13/27", CVC: "123"}, ErrExpiryInvalid},
		{"expired last month", Card{Number: "4111111111111111", Expiry: "05/26", CVC: "123"}, ErrCardExpired},
		{"expired last year", Card{Number: "4111111111111111", Expiry: "12/25", CVC: "123"}, ErrCardExpired},
		{"amex with 3-digit cvc", Card{Number: "378282246310005", Expiry: "12/27", CVC: "123"}, ErrCVCInvalid},
		{"visa with 4-digit cvc", Card{Number: "4111111111111111", Expiry: "12/27", CVC: "1234"}, ErrCVCInvalid},
		{"non-numeric cvc", Card{Number: "4111111111111111", Expiry: "12/27", CVC: "12a"}, ErrCVCInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.card.Validate(now), tt.want)
		})
	}
}

func TestProcessorExpiry(t *testing.T) {
	assert.Equal(t, "1227", ProcessorExpiry("12/27"))
	assert.Equal(t, "0130", ProcessorExpiry("01 / 30"))
}

func TestCommission(t *testing.T) {
	tests := []struct {
		amount, rate, want string
	}{
		{"42.00", "10", "4.2"},
		{"19.99", "12.5", "2.5"},
		{"10.05", "5", "0.5"},
		{"0.10", "5", "0.01"},
		{"100", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.amount+"@"+tt.rate, func(t *testing.T) {
			got := Commission(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.rate))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestAllocateProportionally(t *testing.T) {
	d := decimal.RequireFromString

	t.Run("30/70 split of 50", func(t *testing.T) {
		shares, err := AllocateProportionally(d("50"), []decimal.Decimal{d("30"), d("70")})
		require.NoError(t, err)
		require.Len(t, shares, 2)
		assert.Equal(t, "15.00", shares[0].StringFixed(2))
		assert.Equal(t, "35.00", shares[1].StringFixed(2))
		assert.True(t, Sum(shares).Equal(d("50")))
	})

	t.Run("residual cent goes to last", func(t *testing.T) {
		shares, err := AllocateProportionally(d("10"), []decimal.Decimal{d("1"), d("1"), d("1")})
		require.NoError(t, err)
		assert.Equal(t, "3.33", shares[0].StringFixed(2))
		assert.Equal(t, "3.33", shares[1].StringFixed(2))
		assert.Equal(t, "3.34", shares[2].StringFixed(2))
		assert.True(t, Sum(shares).Equal(d("10")))
	})

	t.Run("tied remainders favour the later sale", func(t *testing.T) {
		shares, err := AllocateProportionally(d("0.05"), []decimal.Decimal{d("1"), d("1")})
		require.NoError(t, err)
		assert.Equal(t, "0.02", shares[0].StringFixed(2))
		assert.Equal(t, "0.03", shares[1].StringFixed(2))
	})

	t.Run("fewer cents than sales", func(t *testing.T) {
		weights := []decimal.Decimal{d("1"), d("1"), d("1"), d("1"), d("1"), d("1")}
		shares, err := AllocateProportionally(d("0.03"), weights)
		require.NoError(t, err)
		require.Len(t, shares, 6)
		for i, s := range shares {
			assert.False(t, s.IsNegative(), "share %d is %s", i, s)
		}
		assert.Equal(t, []string{"0.00", "0.00", "0.00", "0.01", "0.01", "0.01"}, fixed(shares))
		assert.True(t, Sum(shares).Equal(d("0.03")))
	})

	t.Run("largest remainder wins the spare cent", func(t *testing.T) {
		shares, err := AllocateProportionally(d("1.00"), []decimal.Decimal{d("5"), d("2"), d("2")})
		require.NoError(t, err)
		assert.Equal(t, []string{"0.56", "0.22", "0.22"}, fixed(shares))
	})

	t.Run("zero weight gets nothing", func(t *testing.T) {
		shares, err := AllocateProportionally(d("0.01"), []decimal.Decimal{d("3"), decimal.Zero})
		require.NoError(t, err)
		assert.Equal(t, []string{"0.01", "0.00"}, fixed(shares))
	})

	t.Run("zero weights", func(t *testing.T) {
		_, err := AllocateProportionally(d("5"), []decimal.Decimal{decimal.Zero})
		assert.ErrorIs(t, err, ErrNothingToAllocate)
	})
}

func fixed(amounts []decimal.Decimal) []string {
	out := make([]string, len(amounts))
	for i, a := range amounts {
		out[i] = a.StringFixed(2)
	}
	return out
}

func TestSettlementAttempt(t *testing.T) {
	a := NewSettlementAttempt(42)
	assert.Equal(t, SettlementNotStarted, a.State)

	saleID := uuid.New()
	a.Record(AttemptEntry{TransactionID: "T1", Amount: decimal.RequireFromString("20"), SaleID: saleID})
	a.Record(AttemptEntry{TransactionID: "T2", Amount: decimal.RequireFromString("30.50")})

	assert.Equal(t, []string{"T1", "T2"}, a.TransactionIDs())
	assert.Equal(t, []uuid.UUID{saleID}, a.SaleIDs())
	assert.Equal(t, "50.50", a.Total().StringFixed(2))
}

func TestMerchantOrder_Metadata(t *testing.T) {
	saleID := uuid.New()
	mo := MerchantOrder{
		SaleID:          saleID,
		OriginalOrderID: 1001,
		OriginalSiteID:  3,
		TransactionID:   "T9",
		Commission:      decimal.RequireFromString("4.2"),
	}

	meta := mo.Metadata()
	assert.Equal(t, "1001", meta["original_order_id"])
	assert.Equal(t, "3", meta["original_site_id"])
	assert.Equal(t, "T9", meta["transaction_id"])
	assert.Equal(t, "4.20", meta["commission"])
	assert.Equal(t, saleID.String(), meta["sale_id"])
}

func TestOrder_CartItems(t *testing.T) {
	o := Order{Items: []LineItem{{ItemID: 1, ProductID: 10, Name: "Mug"}, {ItemID: 2, ProductID: 11, Name: "Poster"}}}
	assert.Equal(t, []CartItem{{ItemID: 1, ProductID: 10, Name: "Mug"}, {ItemID: 2, ProductID: 11, Name: "Poster"}}, o.CartItems())
}

func TestOrder_ChargeLines(t *testing.T) {
	d := decimal.RequireFromString
	o := Order{Items: []LineItem{
		{ItemID: 1, ProductID: 55, Name: "Mug (red)", Quantity: 1, Total: d("12.00")},
		{ItemID: 2, ProductID: 77, Name: "Poster", Quantity: 2, Total: d("30.00")},
		{ItemID: 3, ProductID: 55, Name: "Mug (blue)", Quantity: 2, Total: d("24.50")},
	}}

	lines := o.ChargeLines()
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].ItemID)
	assert.Equal(t, "Mug (red)", lines[0].Name)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, "36.50", lines[0].Total.StringFixed(2))
	assert.Equal(t, int64(2), lines[1].ItemID)
	assert.Equal(t, "30.00", lines[1].Total.StringFixed(2))
	assert.Len(t, o.Items, 3)
	assert.Equal(t, "12.00", o.Items[0].Total.StringFixed(2))
}

func TestAddress(t *testing.T) {
	assert.True(t, Address{}.IsZero())
	assert.Equal(t, "Ada Lovelace", Address{FirstName: "Ada", LastName: "Lovelace"}.FullName())
}
