package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/artdesignbySF/MadameSatoshi/errors"
)

// PlayHandler exposes session, balance, invoice and draw endpoints.
type PlayHandler struct {
	svc    *PlayService
	logger zerolog.Logger
}

// NewPlayHandler creates a play handler.
func NewPlayHandler(svc *PlayService, logger zerolog.Logger) *PlayHandler {
	return &PlayHandler{
		svc:    svc,
		logger: logger.With().Str("handler", "play").Logger(),
	}
}

type sessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type depositInvoiceRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
}

type confirmDepositRequest struct {
	SessionID   string `json:"sessionId" binding:"required"`
	PaymentHash string `json:"payment_hash" binding:"required"`
}

// NewSession handles GET /api/session
func (h *PlayHandler) NewSession(c *gin.Context) {
	OK(c, gin.H{"sessionId": h.svc.NewSession()})
}

// GetBalance handles GET /api/balance/:sessionId
func (h *PlayHandler) GetBalance(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		Error(c, http.StatusBadRequest, errors.New(errors.ErrSessionRequired, "Session ID is required"))
		return
	}

	balance, err := h.svc.Balance(c.Request.Context(), sessionID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, gin.H{"balance": balance})
}

// Draw handles POST /api/draw (invoice-funded play)
func (h *PlayHandler) Draw(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, errors.New(errors.ErrSessionRequired, "Session ID is required"))
		return
	}

	result, err := h.svc.Draw(c.Request.Context(), req.SessionID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, result)
}

// DrawFromBalance handles POST /api/draw-from-balance
func (h *PlayHandler) DrawFromBalance(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, errors.New(errors.ErrSessionRequired, "Session ID is required"))
		return
	}

	result, err := h.svc.DrawFromBalance(c.Request.Context(), req.SessionID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, result)
}

// CreateInvoice handles POST /api/create-invoice
func (h *PlayHandler) CreateInvoice(c *gin.Context) {
	inv, err := h.svc.CreatePlayInvoice(c.Request.Context())
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, inv)
}

// CheckInvoice handles GET /api/check-invoice/:payment_hash
func (h *PlayHandler) CheckInvoice(c *gin.Context) {
	paid, amountSats, err := h.svc.CheckInvoice(c.Request.Context(), c.Param("payment_hash"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, gin.H{"paid": paid, "amount": amountSats})
}

// CreateDepositInvoice handles POST /api/create-deposit-invoice
func (h *PlayHandler) CreateDepositInvoice(c *gin.Context) {
	var req depositInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, errors.New(errors.ErrInvalidRequest, "Session ID and amount are required"))
		return
	}

	inv, err := h.svc.CreateDepositInvoice(c.Request.Context(), req.SessionID, req.Amount)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, gin.H{
		"payment_hash":    inv.PaymentHash,
		"payment_request": inv.PaymentRequest,
		"amount":          req.Amount,
	})
}

// CheckDepositInvoice handles GET /api/check-deposit-invoice/:payment_hash
func (h *PlayHandler) CheckDepositInvoice(c *gin.Context) {
	paid, amountSats, err := h.svc.CheckInvoice(c.Request.Context(), c.Param("payment_hash"))
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, gin.H{"paid": paid, "amount": amountSats})
}

// ConfirmDeposit handles POST /api/confirm-deposit-payment
func (h *PlayHandler) ConfirmDeposit(c *gin.Context) {
	var req confirmDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, errors.New(errors.ErrInvalidRequest, "Session ID and payment hash are required"))
		return
	}

	balance, err := h.svc.ConfirmDeposit(c.Request.Context(), req.SessionID, req.PaymentHash)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	OK(c, gin.H{"credited": true, "balance": balance})
}
