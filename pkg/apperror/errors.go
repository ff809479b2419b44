package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string   `json:"error_code"`
	Message    string   `json:"message"`
	HTTPStatus int      `json:"-"`
	Err        error    `json:"-"`                 // Wrapped internal error (not exposed to client)
	Details    []string `json:"details,omitempty"` // Item-level context safe to show the client
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// As extracts the first *AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasPrefix reports whether err is an AppError whose code starts with prefix
// (for example "DEC_" or "PRC_").
func HasPrefix(err error, prefix string) bool {
	appErr, ok := As(err)
	return ok && strings.HasPrefix(appErr.Code, prefix)
}

// ---- Validation (VAL) ----

func ErrInvalidCardNumber() *AppError {
	return New("VAL_001", "Invalid card number. Please check and try again.", http.StatusBadRequest)
}

func ErrInvalidExpiry() *AppError {
	return New("VAL_002", "Invalid expiration date. Please use MM/YY format.", http.StatusBadRequest)
}

func ErrCardExpired() *AppError {
	return New("VAL_003", "Card has expired. Please use a different card.", http.StatusBadRequest)
}

func ErrInvalidCVC() *AppError {
	return New("VAL_004", "Invalid security code. Please check and try again.", http.StatusBadRequest)
}

func ErrMissingCardFields() *AppError {
	return New("VAL_005", "Please fill in all required card fields.", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_006", "Invalid amount", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("VAL_007", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrPayloadTooLarge(limit int64) *AppError {
	return New("VAL_008", fmt.Sprintf("Request body exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
}

// Validation returns a generic VAL_000 validation error.
func Validation(message string) *AppError {
	return New("VAL_000", message, http.StatusBadRequest)
}

// ---- Configuration (CFG) ----

// ErrInvalidPaymentConfiguration lists the item names whose owner cannot be charged.
func ErrInvalidPaymentConfiguration(items []string) *AppError {
	err := New("CFG_001",
		fmt.Sprintf("The following products have invalid payment configuration: %s", strings.Join(items, ", ")),
		http.StatusUnprocessableEntity)
	err.Details = append([]string(nil), items...)
	return err
}

func ErrProductConfiguration(item string) *AppError {
	return New("CFG_002", fmt.Sprintf("Payment configuration error for product: %s", item), http.StatusUnprocessableEntity)
}

// ---- Processor (PRC / DEC) ----

func ErrProcessorUnavailable(err error) *AppError {
	return Wrap("PRC_001", "Payment processing error. Please try again.", http.StatusBadGateway, err)
}

// ErrProcessorRejected carries a curated processor message that is safe to show.
func ErrProcessorRejected(message string, err error) *AppError {
	return Wrap("PRC_002", message, http.StatusBadGateway, err)
}

func ErrDeclined(message string) *AppError {
	return New("DEC_001", message, http.StatusPaymentRequired)
}

// ---- Settlement (SET) ----

// ErrPartialSettlement keeps the message and status of the failure that
// stopped the settlement; the original error stays reachable via Unwrap.
func ErrPartialSettlement(original *AppError) *AppError {
	return Wrap("SET_001", original.Message, original.HTTPStatus, original)
}

func ErrAlreadySettled() *AppError {
	return New("SET_002", "Order has already been paid", http.StatusConflict)
}

func ErrSettlementInProgress() *AppError {
	return New("SET_003", "Payment for this order is already being processed", http.StatusConflict)
}

// ---- Refund (RFD) ----

func ErrNoPaymentRecord() *AppError {
	return New("RFD_001", "No payment records found for this order.", http.StatusNotFound)
}

func ErrInvalidRefundAmount() *AppError {
	return New("RFD_002", "Refund amount must be positive and not exceed the amount paid", http.StatusBadRequest)
}

func ErrRefundFailed(message string) *AppError {
	return New("RFD_003", message, http.StatusBadGateway)
}

func ErrRefundInProgress() *AppError {
	return New("RFD_004", "A refund for this order is already being processed", http.StatusConflict)
}

// ---- Reconciliation (SYNC) ----

func ErrSyncFailed(reason string, err error) *AppError {
	return Wrap("SYNC_001", reason, http.StatusInternalServerError, err)
}

func ErrSyncInProgress() *AppError {
	return New("SYNC_002", "Sale sync already in progress", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUnauthorizedWebhook() *AppError {
	return New("AUTH_002", "Unauthorized", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
