package handler

import (
	"time"

	"reseller-ledger/internal/adapter/http/dto"
	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"
	"reseller-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles sale and fulfillment endpoints.
type OrderHandler struct {
	tracker  ports.FulfillmentTracker
	verifier ports.VerificationSession
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(tracker ports.FulfillmentTracker, verifier ports.VerificationSession) *OrderHandler {
	return &OrderHandler{tracker: tracker, verifier: verifier}
}

// CreateSale handles POST /api/v1/sales.
func (h *OrderHandler) CreateSale(c *gin.Context) {
	var req dto.SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("wallet_id must be a valid UUID"))
		return
	}

	order, err := h.tracker.RecordSale(c.Request.Context(), ports.SaleParams{
		WalletID:         walletID,
		Product:          req.Product,
		RecipientAddress: req.RecipientAddress,
		Amount:           req.Amount,
		ProfitRate:       req.ProfitRate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toOrderResponse(order))
}

// AcceptOrder handles POST /api/v1/orders/:id/accept.
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("order id must be a valid UUID"))
		return
	}

	var req dto.AcceptOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	order, err := h.tracker.MarkAccepted(c.Request.Context(), orderID, req.ProviderReference, req.RawResponse)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toOrderResponse(order))
}

// FulfillmentCallback handles POST /api/v1/fulfillment/callback.
func (h *OrderHandler) FulfillmentCallback(c *gin.Context) {
	var req dto.FulfillmentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		response.Error(c, apperror.Validation("order_id must be a valid UUID"))
		return
	}

	var order *domain.Order
	if req.Status == "success" {
		order, _, err = h.tracker.Complete(c.Request.Context(), orderID, req.RawResponse)
	} else {
		order, _, err = h.tracker.Fail(c.Request.Context(), orderID, req.RawResponse, req.Reason)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toOrderResponse(order))
}

// GetOrder handles GET /api/v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("order id must be a valid UUID"))
		return
	}

	order, err := h.tracker.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toOrderResponse(order))
}

// VerifyOrder handles GET /api/v1/orders/:id/verify. The polling session is
// bound to the request context, so a disconnecting client stops it.
func (h *OrderHandler) VerifyOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("order id must be a valid UUID"))
		return
	}

	result, err := h.verifier.Observe(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.VerificationResponse{
		State:    string(result.State),
		Attempts: result.Attempts,
	}
	if result.Order != nil {
		o := toOrderResponse(result.Order)
		resp.Order = &o
	}
	response.OK(c, resp)
}

func toOrderResponse(o *domain.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:                  o.ID.String(),
		WalletID:            o.WalletID.String(),
		Product:             o.Product,
		RecipientAddress:    o.RecipientAddress,
		Amount:              o.Amount,
		ProfitShare:         o.ProfitShare,
		Status:              string(o.Status),
		ProviderReference:   o.ProviderReference,
		FulfillmentResponse: o.FulfillmentResponse,
		RetryCount:          o.RetryCount,
		CreatedAt:           o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           o.UpdatedAt.Format(time.RFC3339),
	}
}
