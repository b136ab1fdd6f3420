package handler

import (
	"strconv"

	"reseller-ledger/internal/adapter/http/dto"
	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"
	"reseller-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconcileHandler handles reconciliation endpoints.
type ReconcileHandler struct {
	worker ports.ReconciliationWorker
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(worker ports.ReconciliationWorker) *ReconcileHandler {
	return &ReconcileHandler{worker: worker}
}

// ListStuck handles GET /api/v1/reconcile/stuck.
func (h *ReconcileHandler) ListStuck(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	orders, err := h.worker.ListStuck(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	response.OK(c, items)
}

// RetryOne handles POST /api/v1/reconcile/orders/:id/retry.
func (h *ReconcileHandler) RetryOne(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("order id must be a valid UUID"))
		return
	}

	outcome, err := h.worker.RetryOne(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toRetryOutcomeResponse(outcome))
}

// RetryAll handles POST /api/v1/reconcile/retry-all.
func (h *ReconcileHandler) RetryAll(c *gin.Context) {
	var req dto.RetryAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, apperror.Validation(err.Error()))
			return
		}
	}

	outcomes, err := h.worker.RetryAll(c.Request.Context(), req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.RetryOutcomeResponse, 0, len(outcomes))
	for i := range outcomes {
		items = append(items, toRetryOutcomeResponse(&outcomes[i]))
	}
	response.OK(c, items)
}

func toRetryOutcomeResponse(o *domain.RetryOutcome) dto.RetryOutcomeResponse {
	return dto.RetryOutcomeResponse{
		OrderID:  o.OrderID.String(),
		Result:   string(o.Result),
		Reason:   o.Reason,
		Credited: o.Credited,
		Reversed: o.Reversed,
	}
}
