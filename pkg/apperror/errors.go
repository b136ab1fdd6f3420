package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
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

// Code extracts the AppError code from err, or "" if err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Validation (VAL) ----

// Validation returns a bad-input error with a caller-provided message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Ledger & Funds (FUND / LED) ----

func ErrInsufficientFunds() *AppError {
	return New("FUND_001", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

// ErrLedgerIntegrity signals the cached wallet projection disagrees with the
// append-only log. The write that detected it was not applied.
func ErrLedgerIntegrity(err error) *AppError {
	return Wrap("LED_001", "Ledger integrity violation", http.StatusInternalServerError, err)
}

// ---- Concurrency (CONC) ----

func ErrConcurrencyConflict(err error) *AppError {
	return Wrap("CONC_001", "Concurrent update conflict, retry the operation", http.StatusConflict, err)
}

// ---- Fulfillment (FUL / PROV / TERM) ----

func ErrProviderUnavailable(err error) *AppError {
	return Wrap("PROV_001", "Fulfillment provider unavailable", http.StatusBadGateway, err)
}

// ErrAlreadyTerminal reports an attempted transition on an order or
// withdrawal already in a terminal state. Reconciliation treats it as a
// no-op success; the HTTP layer reports a conflict.
func ErrAlreadyTerminal(entity string) *AppError {
	return New("TERM_001", fmt.Sprintf("%s is already in a terminal state", entity), http.StatusConflict)
}

func ErrNotProcessing() *AppError {
	return New("FUL_001", "Order is not in processing state", http.StatusConflict)
}

// ---- Generic resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrWalletDeactivated() *AppError {
	return New("RES_002", "Wallet is deactivated", http.StatusForbidden)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
