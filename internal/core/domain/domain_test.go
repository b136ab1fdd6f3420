package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestOrder_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status OrderStatus
		want   bool
	}{
		{"pending", OrderStatusPending, false},
		{"processing", OrderStatusProcessing, false},
		{"completed", OrderStatusCompleted, true},
		{"failed", OrderStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.status}
			assert.Equal(t, tt.want, o.IsTerminal())
		})
	}
}

func TestOrder_IsStuck(t *testing.T) {
	now := time.Now()
	threshold := 5 * time.Minute

	tests := []struct {
		name      string
		status    OrderStatus
		updatedAt time.Time
		want      bool
	}{
		{"processing and stale", OrderStatusProcessing, now.Add(-10 * time.Minute), true},
		{"processing but fresh", OrderStatusProcessing, now.Add(-1 * time.Minute), false},
		{"pending and stale", OrderStatusPending, now.Add(-10 * time.Minute), false},
		{"completed and stale", OrderStatusCompleted, now.Add(-10 * time.Minute), false},
		{"exactly at threshold", OrderStatusProcessing, now.Add(-threshold), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.status, UpdatedAt: tt.updatedAt}
			assert.Equal(t, tt.want, o.IsStuck(threshold, now))
		})
	}
}

func TestWithdrawal_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status WithdrawalStatus
		want   bool
	}{
		{"pending", WithdrawalStatusPending, false},
		{"completed", WithdrawalStatusCompleted, true},
		{"failed", WithdrawalStatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Withdrawal{Status: tt.status}
			assert.Equal(t, tt.want, w.IsTerminal())
		})
	}
}

func TestWallet_IsActive(t *testing.T) {
	assert.True(t, (&Wallet{Active: true}).IsActive())
	assert.False(t, (&Wallet{Active: false}).IsActive())
}

func TestLedgerOperation_IsAdministrative(t *testing.T) {
	assert.True(t, OpAdminCredit.IsAdministrative())
	assert.True(t, OpAdminDebit.IsAdministrative())
	assert.False(t, OpCredit.IsAdministrative())
	assert.False(t, OpWithdrawalHold.IsAdministrative())
	assert.False(t, OpCorrection.IsAdministrative())
}

func TestVerificationState_IsTerminal(t *testing.T) {
	assert.True(t, VerificationCompleted.IsTerminal())
	assert.True(t, VerificationFailed.IsTerminal())
	assert.False(t, VerificationPending.IsTerminal(), "PENDING is soft-terminal, not terminal")
	assert.False(t, VerificationVerifying.IsTerminal())
	assert.False(t, VerificationProcessing.IsTerminal())
}

func TestBuildCreditKey(t *testing.T) {
	id := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	assert.Equal(t, "credit:550e8400-e29b-41d4-a716-446655440000", BuildCreditKey(id))
}
