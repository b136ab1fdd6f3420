package handler

import (
	"reseller-ledger/internal/adapter/http/dto"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"
	"reseller-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvestigationHandler handles the support snapshot endpoint.
type InvestigationHandler struct {
	investigationSvc ports.InvestigationService
}

// NewInvestigationHandler creates a new InvestigationHandler.
func NewInvestigationHandler(investigationSvc ports.InvestigationService) *InvestigationHandler {
	return &InvestigationHandler{investigationSvc: investigationSvc}
}

// Investigate handles GET /api/v1/investigations/stores/:store_id.
func (h *InvestigationHandler) Investigate(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("store_id"))
	if err != nil {
		response.Error(c, apperror.Validation("store id must be a valid UUID"))
		return
	}

	report, err := h.investigationSvc.Investigate(c.Request.Context(), storeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	orders := make([]dto.OrderResponse, 0, len(report.RecentOrders))
	for i := range report.RecentOrders {
		orders = append(orders, toOrderResponse(&report.RecentOrders[i]))
	}
	withdrawals := make([]dto.WithdrawalResponse, 0, len(report.Withdrawals))
	for i := range report.Withdrawals {
		withdrawals = append(withdrawals, toWithdrawalResponse(&report.Withdrawals[i]))
	}
	entries := make([]dto.LedgerEntryResponse, 0, len(report.LedgerEntries))
	for i := range report.LedgerEntries {
		entries = append(entries, toLedgerEntryResponse(&report.LedgerEntries[i]))
	}

	response.OK(c, gin.H{
		"wallet":             toWalletResponse(report.Wallet),
		"recent_orders":      orders,
		"recent_withdrawals": withdrawals,
		"recent_entries":     entries,
	})
}
