package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/apperror"
	"multi-merchant-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-ID"

	// Legacy form webhooks may carry the shared secret as ?key=.
	QueryWebhookKey = "key"

	// Context keys
	CtxRequestID = "request_id"
	CtxAdmin     = "admin_subject"
)

// RequestID tags every request with an id, reusing a well-formed inbound one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// WebhookAuth checks the shared webhook secret. The bearer token must match
// exactly; with allowQueryKey the legacy ?key= parameter is accepted too.
func WebhookAuth(token string, allowQueryKey bool, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := bearerToken(c)
		if presented == "" && allowQueryKey {
			presented = c.Query(QueryWebhookKey)
		}

		if token == "" || presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			log.Warn().Str("path", c.Request.URL.Path).Str("client_ip", c.ClientIP()).Msg("webhook rejected: bad token")
			response.Error(c, apperror.ErrUnauthorizedWebhook())
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminAuth validates the admin JWT on admin routes.
func AdminAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			log.Debug().Err(err).Msg("admin token rejected")
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxAdmin, claims.Subject)
		c.Next()
	}
}

const bearerPrefix = "Bearer "

// bearerToken returns what follows an exact, case-sensitive "Bearer " prefix.
// The token is not trimmed, so padding makes it fail the comparison.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return ""
	}
	return authHeader[len(bearerPrefix):]
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
