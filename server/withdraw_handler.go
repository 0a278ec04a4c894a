package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/artdesignbySF/MadameSatoshi/errors"
)

// WithdrawHandler exposes the LNURL-withdraw endpoints.
type WithdrawHandler struct {
	svc    *WithdrawService
	logger zerolog.Logger
}

// NewWithdrawHandler creates a withdraw handler.
func NewWithdrawHandler(svc *WithdrawService, logger zerolog.Logger) *WithdrawHandler {
	return &WithdrawHandler{
		svc:    svc,
		logger: logger.With().Str("handler", "withdraw").Logger(),
	}
}

type withdrawRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Amount    int64  `json:"amount"`
}

// Generate handles POST /api/generate-withdraw-lnurl. Amount is
// optional; zero withdraws the full balance.
func (h *WithdrawHandler) Generate(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, errors.New(errors.ErrSessionRequired, "Session ID is required"))
		return
	}
	if req.Amount < 0 {
		Error(c, http.StatusBadRequest, errors.New(errors.ErrInvalidAmount, "Withdrawal amount must be positive"))
		return
	}

	result, err := h.svc.GenerateWithdrawLink(c.Request.Context(), req.SessionID, req.Amount)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, result)
}

// CheckClaim handles GET /api/check-lnurl-claim/:link_id/:sessionId
func (h *WithdrawHandler) CheckClaim(c *gin.Context) {
	linkID := c.Param("link_id")
	sessionID := c.Param("sessionId")

	result, err := h.svc.CheckClaim(c.Request.Context(), linkID, sessionID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, result)
}
