package dto

// CreateWalletRequest is the request body for wallet creation.
type CreateWalletRequest struct {
	StoreID string `json:"store_id" binding:"required,uuid"`
}

// AdjustWalletRequest is the request body for administrative adjustments.
type AdjustWalletRequest struct {
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Direction      string `json:"direction" binding:"required,oneof=credit debit"`
	Reason         string `json:"reason" binding:"required"`
	AllowOverdraft bool   `json:"allow_overdraft"`
}

// SaleRequest is the request body for sale acceptance.
type SaleRequest struct {
	WalletID         string `json:"wallet_id" binding:"required,uuid"`
	Product          string `json:"product" binding:"required,max=100"`
	RecipientAddress string `json:"recipient_address" binding:"required,max=200"`
	Amount           int64  `json:"amount" binding:"required,gt=0"`
	ProfitRate       string `json:"profit_rate" binding:"required"`
}

// AcceptOrderRequest is the request body for marking an order accepted.
type AcceptOrderRequest struct {
	ProviderReference string `json:"provider_reference" binding:"required,max=100"`
	RawResponse       string `json:"raw_response"`
}

// FulfillmentCallbackRequest is the provider confirmation webhook body.
type FulfillmentCallbackRequest struct {
	OrderID     string `json:"order_id" binding:"required,uuid"`
	Status      string `json:"status" binding:"required,oneof=success failure"`
	Reason      string `json:"reason"`
	RawResponse string `json:"raw_response"`
}

// WithdrawalRequest is the request body for a withdrawal hold.
type WithdrawalRequest struct {
	WalletID string `json:"wallet_id" binding:"required,uuid"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Provider string `json:"provider" binding:"required,max=50"`
}

// CompleteWithdrawalRequest settles or reverses a pending withdrawal.
type CompleteWithdrawalRequest struct {
	Success           bool    `json:"success"`
	ProviderReference *string `json:"provider_reference,omitempty"`
}

// RetryAllRequest bounds a bulk reconciliation pass.
type RetryAllRequest struct {
	Limit int `json:"limit"`
}

// WalletResponse is the response body for wallet queries.
type WalletResponse struct {
	ID                string `json:"id"`
	StoreID           string `json:"store_id"`
	Balance           int64  `json:"balance"`
	PendingWithdrawal int64  `json:"pending_withdrawal"`
	TotalEarnings     int64  `json:"total_earnings"`
	TotalWithdrawn    int64  `json:"total_withdrawn"`
	Active            bool   `json:"active"`
	CreatedAt         string `json:"created_at"`
}

// LedgerEntryResponse is the response body for one audit entry.
type LedgerEntryResponse struct {
	ID             string  `json:"id"`
	WalletID       string  `json:"wallet_id"`
	Operation      string  `json:"operation"`
	Amount         int64   `json:"amount"`
	BalanceAfter   int64   `json:"balance_after"`
	Description    string  `json:"description"`
	ActorID        *string `json:"actor_id,omitempty"`
	RelatedOrderID *string `json:"related_order_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// AuditListResponse wraps a paginated audit page together with the wallet's
// current projection, so the running totals arrive with the entries.
type AuditListResponse struct {
	Wallet     WalletResponse        `json:"wallet"`
	Items      []LedgerEntryResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// OrderResponse is the response body for order queries.
type OrderResponse struct {
	ID                  string  `json:"id"`
	WalletID            string  `json:"wallet_id"`
	Product             string  `json:"product"`
	RecipientAddress    string  `json:"recipient_address"`
	Amount              int64   `json:"amount"`
	ProfitShare         int64   `json:"profit_share"`
	Status              string  `json:"status"`
	ProviderReference   *string `json:"provider_reference,omitempty"`
	FulfillmentResponse *string `json:"fulfillment_response,omitempty"`
	RetryCount          int     `json:"retry_count"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}

// WithdrawalResponse is the response body for withdrawal queries.
type WithdrawalResponse struct {
	ID                string  `json:"id"`
	WalletID          string  `json:"wallet_id"`
	RequestedAmount   int64   `json:"requested_amount"`
	Status            string  `json:"status"`
	Provider          string  `json:"provider"`
	ProviderReference *string `json:"provider_reference,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// RetryOutcomeResponse reports one reconciliation attempt.
type RetryOutcomeResponse struct {
	OrderID  string `json:"order_id"`
	Result   string `json:"result"`
	Reason   string `json:"reason,omitempty"`
	Credited bool   `json:"credited"`
	Reversed bool   `json:"reversed"`
}

// VerificationResponse reports the outcome of a polling session.
type VerificationResponse struct {
	State    string         `json:"state"`
	Attempts int            `json:"attempts"`
	Order    *OrderResponse `json:"order,omitempty"`
}
