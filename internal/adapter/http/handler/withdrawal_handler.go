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

// WithdrawalHandler handles withdrawal endpoints.
type WithdrawalHandler struct {
	adjustSvc ports.AdjustmentService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(adjustSvc ports.AdjustmentService) *WithdrawalHandler {
	return &WithdrawalHandler{adjustSvc: adjustSvc}
}

// RequestWithdrawal handles POST /api/v1/withdrawals.
func (h *WithdrawalHandler) RequestWithdrawal(c *gin.Context) {
	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		response.Error(c, apperror.Validation("wallet_id must be a valid UUID"))
		return
	}

	withdrawal, _, err := h.adjustSvc.RequestWithdrawal(c.Request.Context(), walletID, req.Amount, req.Provider)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toWithdrawalResponse(withdrawal))
}

// CompleteWithdrawal handles POST /api/v1/withdrawals/:id/complete.
func (h *WithdrawalHandler) CompleteWithdrawal(c *gin.Context) {
	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("withdrawal id must be a valid UUID"))
		return
	}

	var req dto.CompleteWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entry, err := h.adjustSvc.CompleteWithdrawal(c.Request.Context(), withdrawalID, req.Success, req.ProviderReference)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toLedgerEntryResponse(entry))
}

func toWithdrawalResponse(w *domain.Withdrawal) dto.WithdrawalResponse {
	return dto.WithdrawalResponse{
		ID:                w.ID.String(),
		WalletID:          w.WalletID.String(),
		RequestedAmount:   w.RequestedAmount,
		Status:            string(w.Status),
		Provider:          w.Provider,
		ProviderReference: w.ProviderReference,
		CreatedAt:         w.CreatedAt.Format(time.RFC3339),
	}
}
