package handler

import (
	"time"

	"multi-merchant-settlement/internal/adapter/http/dto"
	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/apperror"
	"multi-merchant-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
)

// WebhookHandler mirrors sales and refunds reported by listing sites.
type WebhookHandler struct {
	reconSvc ports.ReconciliationService
	version  string
	log      zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconSvc ports.ReconciliationService, version string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconSvc: reconSvc,
		version:  version,
		log:      log.With().Str("component", "webhook_handler").Logger(),
	}
}

// Sale handles POST /webhook/sale.
func (h *WebhookHandler) Sale(c *gin.Context) {
	h.sale(c, binding.JSON)
}

// Refund handles POST /webhook/refund.
func (h *WebhookHandler) Refund(c *gin.Context) {
	h.refund(c, binding.JSON)
}

// Status handles GET /webhook/status.
func (h *WebhookHandler) Status(c *gin.Context) {
	resp := dto.WebhookStatusResponse{
		Status:    "active",
		Version:   h.version,
		Timestamp: time.Now().Unix(),
	}

	stats, err := h.reconSvc.Stats(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("stats unavailable for status readback")
	} else {
		resp.Stats = stats
		resp.SyncPercentage = stats.SyncPercentage()
	}

	response.OK(c, resp)
}

// Test handles POST /webhook/test and echoes the payload back.
func (h *WebhookHandler) Test(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	response.OK(c, gin.H{
		"message":       "Webhook received",
		"received_data": payload,
		"timestamp":     time.Now().Unix(),
	})
}

// Legacy handles POST /webhook/legacy?type=sale|refund|status with a
// form-encoded body.
func (h *WebhookHandler) Legacy(c *gin.Context) {
	switch c.Query("type") {
	case "sale":
		h.sale(c, binding.Form)
	case "refund":
		h.refund(c, binding.Form)
	case "status":
		h.Status(c)
	default:
		response.Error(c, apperror.Validation("type must be one of sale, refund, status"))
	}
}

func (h *WebhookHandler) sale(c *gin.Context, b binding.Binding) {
	var req dto.SaleWebhook
	if err := c.ShouldBindWith(&req, b); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.reconSvc.OnExternalSale(c.Request.Context(), domain.ExternalSaleEvent{
		OrderID:        req.OrderID,
		TransactionID:  req.TransactionID,
		Amount:         *req.Amount,
		MerchantUserID: req.MerchantUserID,
		MerchantSiteID: req.MerchantSiteID,
		ProductID:      req.ProductID,
		Status:         domain.SaleStatus(req.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Created {
		response.Created(c, result)
		return
	}
	response.OK(c, result)
}

func (h *WebhookHandler) refund(c *gin.Context, b binding.Binding) {
	var req dto.RefundWebhook
	if err := c.ShouldBindWith(&req, b); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.reconSvc.OnExternalRefund(c.Request.Context(), domain.ExternalRefundEvent{
		OrderID:       req.OrderID,
		RefundAmount:  *req.RefundAmount,
		Reason:        req.RefundReason,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}
