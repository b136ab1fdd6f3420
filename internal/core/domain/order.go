package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of a sale order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

// Order is one sale transaction. Orders are never deleted; the record is
// part of the audit trail even after the order reaches a terminal state.
type Order struct {
	ID                  uuid.UUID   `json:"id"`
	WalletID            uuid.UUID   `json:"wallet_id"`
	Product             string      `json:"product"` // network/product descriptor
	RecipientAddress    string      `json:"recipient_address"`
	Amount              int64       `json:"amount"`
	ProfitShare         int64       `json:"profit_share"`
	Status              OrderStatus `json:"status"`
	ProviderReference   *string     `json:"provider_reference,omitempty"`
	FulfillmentResponse *string     `json:"fulfillment_response,omitempty"` // last raw provider reply
	RetryCount          int         `json:"retry_count"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// IsTerminal returns true once the order can no longer transition.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusFailed
}

// IsStuck reports whether the order has lingered in processing past the
// staleness threshold. A stuck order is eligible for reconciliation but
// is never auto-failed: the provider may simply be slow.
func (o *Order) IsStuck(threshold time.Duration, now time.Time) bool {
	return o.Status == OrderStatusProcessing && now.Sub(o.UpdatedAt) > threshold
}
