package handler

import (
	"strconv"
	"time"

	"reseller-ledger/internal/adapter/http/dto"
	"reseller-ledger/internal/adapter/http/middleware"
	"reseller-ledger/internal/core/domain"
	"reseller-ledger/internal/core/ports"
	"reseller-ledger/pkg/apperror"
	"reseller-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxAuditPageSize = 100

// WalletHandler handles wallet and audit endpoints.
type WalletHandler struct {
	ledger    ports.LedgerStore
	adjustSvc ports.AdjustmentService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.LedgerStore, adjustSvc ports.AdjustmentService) *WalletHandler {
	return &WalletHandler{ledger: ledger, adjustSvc: adjustSvc}
}

// CreateWallet handles POST /api/v1/wallets.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		response.Error(c, apperror.Validation("store_id must be a valid UUID"))
		return
	}

	wallet, err := h.ledger.CreateWallet(c.Request.Context(), storeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toWalletResponse(wallet))
}

// GetWallet handles GET /api/v1/wallets/:id.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("wallet id must be a valid UUID"))
		return
	}

	wallet, err := h.ledger.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

// Adjust handles POST /api/v1/wallets/:id/adjust.
func (h *WalletHandler) Adjust(c *gin.Context) {
	actorID, ok := c.Get(middleware.CtxActorID)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("wallet id must be a valid UUID"))
		return
	}

	var req dto.AdjustWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount := req.Amount
	if req.Direction == "debit" {
		amount = -amount
	}

	entry, err := h.adjustSvc.AdjustByAdmin(c.Request.Context(), ports.AdminAdjustParams{
		WalletID:       walletID,
		Amount:         amount,
		Reason:         req.Reason,
		ActorID:        actorID.(uuid.UUID),
		AllowOverdraft: req.AllowOverdraft,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toLedgerEntryResponse(entry))
}

// Audit handles GET /api/v1/wallets/:id/audit.
func (h *WalletHandler) Audit(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("wallet id must be a valid UUID"))
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		response.Error(c, apperror.Validation("page must be a positive integer"))
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize < 1 {
		response.Error(c, apperror.Validation("page_size must be a positive integer"))
		return
	}
	if pageSize > maxAuditPageSize {
		pageSize = maxAuditPageSize
	}

	params := ports.LedgerListParams{WalletID: walletID, Page: page, PageSize: pageSize}

	if opStr := c.Query("operation"); opStr != "" {
		op := domain.LedgerOperation(opStr)
		params.Operation = &op
	}
	if fromStr := c.Query("from"); fromStr != "" {
		from, err := strconv.ParseInt(fromStr, 10, 64)
		if err != nil {
			response.Error(c, apperror.Validation("from must be a unix timestamp"))
			return
		}
		params.From = &from
	}
	if toStr := c.Query("to"); toStr != "" {
		to, err := strconv.ParseInt(toStr, 10, 64)
		if err != nil {
			response.Error(c, apperror.Validation("to must be a unix timestamp"))
			return
		}
		params.To = &to
	}

	wallet, err := h.ledger.GetWallet(c.Request.Context(), walletID)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, total, err := h.ledger.History(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toLedgerEntryResponse(&entries[i]))
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	response.OK(c, dto.AuditListResponse{
		Wallet:     toWalletResponse(wallet),
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:                w.ID.String(),
		StoreID:           w.StoreID.String(),
		Balance:           w.Balance,
		PendingWithdrawal: w.PendingWithdrawal,
		TotalEarnings:     w.TotalEarnings,
		TotalWithdrawn:    w.TotalWithdrawn,
		Active:            w.Active,
		CreatedAt:         w.CreatedAt.Format(time.RFC3339),
	}
}

func toLedgerEntryResponse(e *domain.LedgerEntry) dto.LedgerEntryResponse {
	resp := dto.LedgerEntryResponse{
		ID:           e.ID.String(),
		WalletID:     e.WalletID.String(),
		Operation:    string(e.Operation),
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		Description:  e.Description,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
	if e.ActorID != nil {
		s := e.ActorID.String()
		resp.ActorID = &s
	}
	if e.RelatedOrderID != nil {
		s := e.RelatedOrderID.String()
		resp.RelatedOrderID = &s
	}
	return resp
}
