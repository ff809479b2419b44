package handler

import (
	"strconv"

	"multi-merchant-settlement/internal/adapter/http/dto"
	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/apperror"
	"multi-merchant-settlement/pkg/response"

	"github.com/gin-gonic/gin"
)

// CheckoutHandler handles the customer-facing settlement endpoints.
type CheckoutHandler struct {
	settlementSvc ports.SettlementService
	resolver      ports.OwnershipResolver
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(settlementSvc ports.SettlementService, resolver ports.OwnershipResolver) *CheckoutHandler {
	return &CheckoutHandler{settlementSvc: settlementSvc, resolver: resolver}
}

// Settle handles POST /api/v1/checkout/:order_id/settle.
func (h *CheckoutHandler) Settle(c *gin.Context) {
	orderID, ok := int64Param(c, "order_id")
	if !ok {
		return
	}

	var req dto.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	settle := ports.SettleRequest{
		OrderID:    orderID,
		Card:       domain.Card{Number: req.CardNumber, Expiry: req.CardExpiry, CVC: req.CardCVC},
		CustomerIP: c.ClientIP(),
	}
	if req.Billing != nil {
		dto.SanitizeStruct(req.Billing)
		settle.Billing = toAddress(req.Billing)
	}

	result, err := h.settlementSvc.Settle(c.Request.Context(), settle)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SettleResponse{
		Result:         "success",
		OrderID:        result.OrderID,
		RedirectURL:    result.RedirectURL,
		TransactionIDs: result.TransactionIDs,
		TotalCharged:   result.TotalCharged.StringFixed(2),
	})
}

// ValidateCart handles POST /api/v1/checkout/validate. It reports the cart
// lines that have no active merchant before the customer enters a card.
func (h *CheckoutHandler) ValidateCart(c *gin.Context) {
	var req dto.ValidateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	items := make([]domain.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		dto.SanitizeStruct(&it)
		items = append(items, domain.CartItem{ItemID: it.ItemID, ProductID: it.ProductID, Name: it.Name})
	}

	res, err := h.resolver.Resolve(c.Request.Context(), req.ListingSiteID, items)
	if err != nil {
		response.Error(c, err)
		return
	}

	invalid := res.InvalidItems
	if invalid == nil {
		invalid = []string{}
	}
	response.OK(c, dto.ValidateCartResponse{Valid: res.Valid, InvalidItems: invalid})
}

func toAddress(b *dto.BillingAddress) *domain.Address {
	return &domain.Address{
		FirstName: b.FirstName,
		LastName:  b.LastName,
		Company:   b.Company,
		Address1:  b.Address1,
		Address2:  b.Address2,
		City:      b.City,
		State:     b.State,
		Postcode:  b.Postcode,
		Country:   b.Country,
		Email:     b.Email,
		Phone:     b.Phone,
	}
}

// int64Param parses a positive numeric path parameter, writing a
// validation error when it is malformed.
func int64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		response.Error(c, apperror.Validation("invalid "+name))
		return 0, false
	}
	return v, true
}
