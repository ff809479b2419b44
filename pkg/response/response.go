package response

import (
	"net/http"
	"time"

	"multi-merchant-settlement/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse is the standard error envelope. Details carries item-level
// context such as the cart lines that cannot be charged.
type ErrorResponse struct {
	ErrorCode string   `json:"error_code"`
	Message   string   `json:"message"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id"`
	Timestamp string   `json:"timestamp"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	Status(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	Status(c, http.StatusCreated, data)
}

// Status sends data in the success envelope with an explicit status code.
func Status(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: requestID(c),
		Timestamp: now(),
	})
}

// Error sends an error response. An *apperror.AppError anywhere in err's
// chain decides the status and code; anything else is a 500.
// Server-side failures are attached to the gin context so the request
// logger records the wrapped cause, which never reaches the client.
func Error(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: requestID(c),
		Timestamp: now(),
	})
}

// requestID prefers the id set by the RequestID middleware, then the
// inbound header, and generates one as a last resort.
func requestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	if c.Request != nil {
		if id := c.GetHeader("X-Request-ID"); id != "" {
			return id
		}
	}
	return uuid.New().String()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
