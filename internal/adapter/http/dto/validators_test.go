package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := SaveCredentialRequest{
		UserID:   7,
		SiteID:   3,
		Username: "  merchant_a  ",
		Password: "  pass1234  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "merchant_a", req.Username)
	assert.Equal(t, "pass1234", req.Password)
	assert.Equal(t, int64(7), req.UserID)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := RefundRequest{Reason: "customer <script>alert('x')</script> request"}
	SanitizeStruct(&req)

	assert.Contains(t, req.Reason, "&lt;script&gt;")
	assert.NotContains(t, req.Reason, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	type withPointer struct {
		Note *string
	}
	note := "  shipped late  "
	req := withPointer{Note: &note}
	SanitizeStruct(&req)

	assert.Equal(t, "shipped late", *req.Note)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := RefundRequest{Reason: "damaged"}
	assert.NotPanics(t, func() { SanitizeStruct(&req) })
	assert.Nil(t, req.Amount)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	req := RefundRequest{Reason: "  damaged  "}
	SanitizeStruct(req)
	assert.Equal(t, "  damaged  ", req.Reason)
}

// --- binding rules ---

func engine(t *testing.T) *validator.Validate {
	t.Helper()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	return v
}

func TestSaleWebhook_Binding(t *testing.T) {
	amount := decimal.RequireFromString("42.00")

	tests := []struct {
		name    string
		req     SaleWebhook
		wantErr bool
	}{
		{"valid minimal", SaleWebhook{OrderID: 1001, TransactionID: "T1", Amount: &amount}, false},
		{"valid with status", SaleWebhook{OrderID: 1001, TransactionID: "T1", Amount: &amount, Status: "refunded"}, false},
		{"missing order", SaleWebhook{TransactionID: "T1", Amount: &amount}, true},
		{"missing transaction", SaleWebhook{OrderID: 1001, Amount: &amount}, true},
		{"missing amount", SaleWebhook{OrderID: 1001, TransactionID: "T1"}, true},
		{"unsafe transaction", SaleWebhook{OrderID: 1001, TransactionID: "T1; DROP", Amount: &amount}, true},
		{"unknown status", SaleWebhook{OrderID: 1001, TransactionID: "T1", Amount: &amount, Status: "voided"}, true},
	}

	v := engine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCartRequest_DivesIntoItems(t *testing.T) {
	v := engine(t)

	ok := ValidateCartRequest{ListingSiteID: 1, Items: []CartItemRequest{{ItemID: 1, ProductID: 55, Name: "Mug"}}}
	assert.NoError(t, v.Struct(ok))

	bad := ValidateCartRequest{ListingSiteID: 1, Items: []CartItemRequest{{ItemID: 1}}}
	assert.Error(t, v.Struct(bad))

	empty := ValidateCartRequest{ListingSiteID: 1}
	assert.Error(t, v.Struct(empty))
}

// --- custom validators ---

func TestSafeID(t *testing.T) {
	type idHolder struct {
		ID string `validate:"safe_id"`
	}
	v := validator.New()
	require.NoError(t, v.RegisterValidation("safe_id", validateSafeID))

	assert.NoError(t, v.Struct(idHolder{ID: "txn_123-abc.4"}))
	assert.Error(t, v.Struct(idHolder{ID: "txn 123"}))
	assert.Error(t, v.Struct(idHolder{ID: "<script>"}))
	assert.NoError(t, v.Struct(idHolder{ID: ""}))
}
