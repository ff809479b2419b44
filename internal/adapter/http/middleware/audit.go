package middleware

import (
	"encoding/json"
	"net/http"

	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// AuditLog records successful admin writes. Actions are matched on the
// route pattern, so path parameters end up in ResourceID.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		actor := c.GetString(CtxAdmin)
		if actor == "" {
			actor = "anonymous"
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			Actor:        actor,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID(c),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
		})
	}
}

func resourceID(c *gin.Context) string {
	if len(c.Params) == 0 {
		return ""
	}
	id := c.Params[0].Value
	for _, p := range c.Params[1:] {
		id += ":" + p.Value
	}
	return id
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/admin/login" && method == http.MethodPost:
		return domain.AuditActionLogin, "session"
	case route == "/api/v1/admin/credentials" && method == http.MethodPut:
		return domain.AuditActionSaveCredential, "merchant_credential"
	case route == "/api/v1/admin/credentials/:user_id/:site_id/deactivate" && method == http.MethodPost:
		return domain.AuditActionDeactivateCred, "merchant_credential"
	case route == "/api/v1/admin/credentials/:user_id/:site_id" && method == http.MethodDelete:
		return domain.AuditActionDeleteCredential, "merchant_credential"
	case route == "/api/v1/admin/ownership" && method == http.MethodPut:
		return domain.AuditActionAssignOwnership, "product_ownership"
	case route == "/api/v1/admin/ownership/:product_id/:listing_site_id" && method == http.MethodDelete:
		return domain.AuditActionRemoveOwnership, "product_ownership"
	case route == "/api/v1/admin/orders/:order_id/refund" && method == http.MethodPost:
		return domain.AuditActionRefund, "order"
	case (route == "/api/v1/admin/sync" || route == "/api/v1/admin/sync/orders/:order_id" || route == "/api/v1/admin/sync/sales/:sale_id") && method == http.MethodPost:
		return domain.AuditActionManualSync, "sale"
	case route == "/api/v1/admin/cleanup" && method == http.MethodPost:
		return domain.AuditActionCleanupSales, "sale"
	}
	return "", ""
}
