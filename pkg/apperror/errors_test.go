package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("FUND_001", "Insufficient funds", http.StatusPaymentRequired),
			expected: "[FUND_001] Insufficient funds",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("VAL_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestCode(t *testing.T) {
	assert.Equal(t, "FUND_001", Code(ErrInsufficientFunds()))
	assert.Equal(t, "TERM_001", Code(fmt.Errorf("outer: %w", ErrAlreadyTerminal("order"))))
	assert.Equal(t, "", Code(fmt.Errorf("plain error")))
	assert.Equal(t, "", Code(nil))
}

func TestLedgerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"Validation", Validation("reason is required"), "VAL_001", 400},
		{"InsufficientFunds", ErrInsufficientFunds(), "FUND_001", 402},
		{"NotFound", ErrNotFound("Wallet"), "RES_001", 404},
		{"WalletDeactivated", ErrWalletDeactivated(), "RES_002", 403},
		{"AlreadyTerminal", ErrAlreadyTerminal("order"), "TERM_001", 409},
		{"NotProcessing", ErrNotProcessing(), "FUL_001", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestWrappedErrors(t *testing.T) {
	inner := fmt.Errorf("pg: deadlock detected")

	concErr := ErrConcurrencyConflict(inner)
	assert.Equal(t, "CONC_001", concErr.Code)
	assert.Equal(t, 409, concErr.HTTPStatus)
	assert.True(t, errors.Is(concErr, inner))

	provErr := ErrProviderUnavailable(inner)
	assert.Equal(t, "PROV_001", provErr.Code)
	assert.Equal(t, 502, provErr.HTTPStatus)

	ledErr := ErrLedgerIntegrity(inner)
	assert.Equal(t, "LED_001", ledErr.Code)
	assert.Equal(t, 500, ledErr.HTTPStatus)

	sysErr := InternalError(inner)
	assert.Equal(t, "SYS_001", sysErr.Code)
	assert.Equal(t, 500, sysErr.HTTPStatus)
}

func TestAuthAndRateErrors(t *testing.T) {
	tokenErr := ErrInvalidToken()
	assert.Equal(t, "AUTH_001", tokenErr.Code)
	assert.Equal(t, 401, tokenErr.HTTPStatus)

	rateErr := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", rateErr.Code)
	assert.Equal(t, 429, rateErr.HTTPStatus)
}

func TestNotFoundEntity(t *testing.T) {
	err := ErrNotFound("Withdrawal")
	assert.Contains(t, err.Message, "Withdrawal")
	assert.Equal(t, "RES_001", err.Code)
}
