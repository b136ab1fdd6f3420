package ports

import "context"

// DeliveryState is the provider's view of a delivery request.
type DeliveryState string

const (
	DeliveryDelivered DeliveryState = "DELIVERED"
	DeliveryFailed    DeliveryState = "FAILED"
	DeliveryInFlight  DeliveryState = "IN_FLIGHT"
)

// DeliveryStatus is the parsed reply to a status query.
type DeliveryStatus struct {
	State  DeliveryState
	Reason string
	Raw    string // raw provider payload, stored on the order verbatim
}

// FulfillmentProvider is the downstream delivery provider boundary.
// Status queries are the reconciliation worker's only network dependency
// and the provider must be assumed unreliable: timeouts and malformed
// payloads surface as ProviderUnavailable errors and leave local state
// untouched. The engine never relies on the provider being idempotent.
type FulfillmentProvider interface {
	// QueryDeliveryStatus asks the provider for the current state of an
	// existing delivery request. It never allocates a new delivery.
	QueryDeliveryStatus(ctx context.Context, providerReference string) (*DeliveryStatus, error)
}
