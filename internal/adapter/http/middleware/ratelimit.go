package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "multi-merchant-settlement/internal/adapter/storage/redis"
	"multi-merchant-settlement/pkg/apperror"
	"multi-merchant-settlement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitStore counts requests per key and window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the rate limits per endpoint group. The
// webhook limit comes from configuration.
func DefaultRateLimitRules(webhookPerMinute int) map[string]RateLimitRule {
	if webhookPerMinute <= 0 {
		webhookPerMinute = 120
	}
	return map[string]RateLimitRule{
		"checkout":    {Limit: 20, Window: time.Minute},
		"webhook":     {Limit: int64(webhookPerMinute), Window: time.Minute},
		"admin_login": {Limit: 10, Window: time.Minute},
		"admin":       {Limit: 120, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
func RateLimiter(store RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys admin traffic by subject and everything else by
// client IP.
func extractIdentifier(c *gin.Context) string {
	if subject := c.GetString(CtxAdmin); subject != "" {
		return "admin:" + subject
	}
	return c.ClientIP()
}
