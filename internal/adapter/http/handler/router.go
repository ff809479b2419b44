package handler

import (
	"multi-merchant-settlement/internal/adapter/http/middleware"
	"multi-merchant-settlement/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SettlementSvc  ports.SettlementService
	ReconSvc       ports.ReconciliationService
	Resolver       ports.OwnershipResolver
	CredentialSvc  ports.CredentialService
	OwnershipSvc   ports.OwnershipService
	AdminAuthSvc   ports.AdminAuthService
	TokenSvc       ports.TokenService
	AuditSvc       ports.AuditService        // nil = audit logging disabled
	RateLimitStore middleware.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	WebhookToken   string
	LegacyKeyParam bool
	WebhookRate    int // requests per minute per client
	MaxBodyBytes   int64
	Mode           string
	Version        string
	APISpec        []byte // OpenAPI YAML served under /swagger
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode == "" {
		deps.Mode = gin.ReleaseMode
	}
	gin.SetMode(deps.Mode)
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	docs := NewAPIDocs(deps.APISpec, deps.Version)
	swagger := r.Group("/swagger")
	{
		swagger.GET("", docs.UI)
		swagger.GET("/spec", docs.Spec)
	}

	rules := middleware.DefaultRateLimitRules(deps.WebhookRate)

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// --- Listing-site webhooks (shared bearer secret) ---
	webhookHandler := NewWebhookHandler(deps.ReconSvc, deps.Version, deps.Logger)
	webhooks := r.Group("/webhook",
		middleware.WebhookAuth(deps.WebhookToken, false, deps.Logger),
		rl("webhook"),
	)
	{
		webhooks.POST("/sale", webhookHandler.Sale)
		webhooks.POST("/refund", webhookHandler.Refund)
		webhooks.GET("/status", webhookHandler.Status)
		webhooks.POST("/test", webhookHandler.Test)
	}
	r.POST("/webhook/legacy",
		middleware.WebhookAuth(deps.WebhookToken, deps.LegacyKeyParam, deps.Logger),
		rl("webhook"),
		webhookHandler.Legacy,
	)

	v1 := r.Group("/api/v1")

	// --- Checkout (customer-facing) ---
	checkoutHandler := NewCheckoutHandler(deps.SettlementSvc, deps.Resolver)
	checkout := v1.Group("/checkout", rl("checkout"))
	{
		checkout.POST("/validate", checkoutHandler.ValidateCart)
		checkout.POST("/:order_id/settle", checkoutHandler.Settle)
	}

	// --- Admin (JWT-authenticated) ---
	adminHandler := NewAdminHandler(AdminServices{
		Auth:        deps.AdminAuthSvc,
		Credentials: deps.CredentialSvc,
		Ownership:   deps.OwnershipSvc,
		Settlement:  deps.SettlementSvc,
		Recon:       deps.ReconSvc,
	})

	admin := v1.Group("/admin")
	if deps.AuditSvc != nil {
		admin.Use(middleware.AuditLog(deps.AuditSvc))
	}
	admin.POST("/login", rl("admin_login"), adminHandler.Login)

	secured := admin.Group("", middleware.AdminAuth(deps.TokenSvc, deps.Logger), rl("admin"))
	{
		secured.PUT("/credentials", adminHandler.SaveCredential)
		secured.GET("/credentials", adminHandler.ListCredentials)
		secured.POST("/credentials/test", adminHandler.TestCredentials)
		secured.POST("/credentials/:user_id/:site_id/test", adminHandler.TestStoredCredentials)
		secured.POST("/credentials/:user_id/:site_id/deactivate", adminHandler.DeactivateCredential)
		secured.DELETE("/credentials/:user_id/:site_id", adminHandler.DeleteCredential)

		secured.PUT("/ownership", adminHandler.AssignOwnership)
		secured.GET("/ownership", adminHandler.ListOwnership)
		secured.DELETE("/ownership/:product_id/:listing_site_id", adminHandler.RemoveOwnership)

		secured.POST("/sync", adminHandler.SyncAll)
		secured.POST("/sync/orders/:order_id", adminHandler.SyncOrder)
		secured.POST("/sync/sales/:sale_id", adminHandler.SyncSale)

		secured.POST("/orders/:order_id/refund", adminHandler.RefundOrder)
		secured.GET("/stats", adminHandler.Stats)
		secured.POST("/cleanup", adminHandler.Cleanup)
	}

	return r
}
