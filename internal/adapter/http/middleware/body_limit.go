package middleware

import (
	"net/http"

	"multi-merchant-settlement/pkg/apperror"
	"multi-merchant-settlement/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize caps checkout, webhook and admin payloads at maxBytes. A
// declared Content-Length over the cap is answered with VAL_008 before the
// handler runs; chunked bodies are cut off by the reader instead.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrPayloadTooLarge(maxBytes))
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
