package handler

import (
	"strconv"

	"multi-merchant-settlement/internal/adapter/http/dto"
	"multi-merchant-settlement/internal/adapter/http/middleware"
	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/apperror"
	"multi-merchant-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminHandler serves the JSON admin surface.
type AdminHandler struct {
	authSvc       ports.AdminAuthService
	credentialSvc ports.CredentialService
	ownershipSvc  ports.OwnershipService
	settlementSvc ports.SettlementService
	reconSvc      ports.ReconciliationService
}

// AdminServices groups the services the admin surface drives.
type AdminServices struct {
	Auth        ports.AdminAuthService
	Credentials ports.CredentialService
	Ownership   ports.OwnershipService
	Settlement  ports.SettlementService
	Recon       ports.ReconciliationService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svcs AdminServices) *AdminHandler {
	return &AdminHandler{
		authSvc:       svcs.Auth,
		credentialSvc: svcs.Credentials,
		ownershipSvc:  svcs.Ownership,
		settlementSvc: svcs.Settlement,
		reconSvc:      svcs.Recon,
	}
}

// Login handles POST /api/v1/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	token, expiry, err := h.authSvc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxAdmin, req.Username)
	response.OK(c, dto.LoginResponse{
		Token:  token,
		Expiry: expiry.Unix(),
	})
}

// --- Credentials ---

// SaveCredential handles PUT /api/v1/admin/credentials.
func (h *AdminHandler) SaveCredential(c *gin.Context) {
	var req dto.SaveCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	// Secrets are stored verbatim; only the username is display text.
	req.Username = dto.SanitizeString(req.Username)

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	cred, err := h.credentialSvc.Save(c.Request.Context(), ports.SaveCredentialRequest{
		Merchant: domain.MerchantRef{UserID: req.UserID, SiteID: req.SiteID},
		Username: req.Username,
		Password: req.Password,
		APIKey:   req.APIKey,
		Active:   active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, cred)
}

// ListCredentials handles GET /api/v1/admin/credentials?active_only=true.
func (h *AdminHandler) ListCredentials(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active_only", "false"))

	creds, err := h.credentialSvc.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	if creds == nil {
		creds = []domain.MerchantCredential{}
	}

	response.OK(c, creds)
}

// TestCredentials handles POST /api/v1/admin/credentials/test.
func (h *AdminHandler) TestCredentials(c *gin.Context) {
	var req dto.TestCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	valid := h.credentialSvc.Test(c.Request.Context(), req.Username, req.Password, req.APIKey)
	response.OK(c, dto.TestCredentialsResponse{Valid: valid})
}

// TestStoredCredentials handles POST /api/v1/admin/credentials/:user_id/:site_id/test.
func (h *AdminHandler) TestStoredCredentials(c *gin.Context) {
	ref, ok := merchantParam(c)
	if !ok {
		return
	}

	valid, err := h.credentialSvc.TestStored(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TestCredentialsResponse{Valid: valid})
}

// DeactivateCredential handles POST /api/v1/admin/credentials/:user_id/:site_id/deactivate.
func (h *AdminHandler) DeactivateCredential(c *gin.Context) {
	ref, ok := merchantParam(c)
	if !ok {
		return
	}

	if err := h.credentialSvc.Deactivate(c.Request.Context(), ref); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"merchant": ref.String(), "is_active": false})
}

// DeleteCredential handles DELETE /api/v1/admin/credentials/:user_id/:site_id.
func (h *AdminHandler) DeleteCredential(c *gin.Context) {
	ref, ok := merchantParam(c)
	if !ok {
		return
	}

	if err := h.credentialSvc.Delete(c.Request.Context(), ref); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"merchant": ref.String(), "deleted": true})
}

// --- Ownership ---

// AssignOwnership handles PUT /api/v1/admin/ownership.
func (h *AdminHandler) AssignOwnership(c *gin.Context) {
	var req dto.AssignOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	rate := decimal.Zero
	if req.CommissionRate != nil {
		rate = *req.CommissionRate
	}

	o, err := h.ownershipSvc.Assign(c.Request.Context(), ports.AssignOwnershipRequest{
		ProductID:      req.ProductID,
		ListingSiteID:  req.ListingSiteID,
		Owner:          domain.MerchantRef{UserID: req.OwnerUserID, SiteID: req.OwnerSiteID},
		CommissionRate: rate,
		ProductName:    dto.SanitizeString(req.ProductName),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, o)
}

// ListOwnership handles GET /api/v1/admin/ownership?user_id=.
func (h *AdminHandler) ListOwnership(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.Error(c, apperror.Validation("user_id query parameter is required"))
		return
	}

	owned, err := h.ownershipSvc.ListByMerchant(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if owned == nil {
		owned = []domain.ProductOwnership{}
	}

	response.OK(c, owned)
}

// RemoveOwnership handles DELETE /api/v1/admin/ownership/:product_id/:listing_site_id.
func (h *AdminHandler) RemoveOwnership(c *gin.Context) {
	productID, ok := int64Param(c, "product_id")
	if !ok {
		return
	}
	siteID, ok := int64Param(c, "listing_site_id")
	if !ok {
		return
	}

	if err := h.ownershipSvc.Remove(c.Request.Context(), productID, siteID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"product_id": productID, "listing_site_id": siteID, "deleted": true})
}

// --- Sync ---

// SyncAll handles POST /api/v1/admin/sync.
func (h *AdminHandler) SyncAll(c *gin.Context) {
	report, err := h.reconSvc.SyncAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// SyncOrder handles POST /api/v1/admin/sync/orders/:order_id.
func (h *AdminHandler) SyncOrder(c *gin.Context) {
	orderID, ok := int64Param(c, "order_id")
	if !ok {
		return
	}

	report, err := h.reconSvc.SyncOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// SyncSale handles POST /api/v1/admin/sync/sales/:sale_id.
func (h *AdminHandler) SyncSale(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("sale_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid sale_id"))
		return
	}

	outcome, err := h.reconSvc.SyncOne(c.Request.Context(), saleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, outcome)
}

// --- Orders ---

// RefundOrder handles POST /api/v1/admin/orders/:order_id/refund.
func (h *AdminHandler) RefundOrder(c *gin.Context) {
	orderID, ok := int64Param(c, "order_id")
	if !ok {
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.settlementSvc.Refund(c.Request.Context(), ports.RefundRequest{
		OrderID: orderID,
		Amount:  req.Amount,
		Reason:  req.Reason,
		Actor:   c.GetString(middleware.CtxAdmin),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// --- Maintenance ---

// Stats handles GET /api/v1/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.reconSvc.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{
		"stats":           stats,
		"sync_percentage": stats.SyncPercentage(),
	})
}

// Cleanup handles POST /api/v1/admin/cleanup?days=. Without days the
// configured retention window applies.
func (h *AdminHandler) Cleanup(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.Error(c, apperror.Validation("days must be a positive integer"))
			return
		}
		days = v
	}

	deleted, err := h.reconSvc.CleanupOldSales(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.CleanupResponse{Days: days, Deleted: deleted})
}

func merchantParam(c *gin.Context) (domain.MerchantRef, bool) {
	userID, ok := int64Param(c, "user_id")
	if !ok {
		return domain.MerchantRef{}, false
	}
	siteID, ok := int64Param(c, "site_id")
	if !ok {
		return domain.MerchantRef{}, false
	}
	return domain.MerchantRef{UserID: userID, SiteID: siteID}, true
}
