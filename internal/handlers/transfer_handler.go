package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/services"
	"spendify/internal/validator"
)

// TransferHandler handles wallet-to-wallet transfers.
type TransferHandler struct {
	transferService services.TransferServicer
	auditService    services.AuditServicer
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService services.TransferServicer, auditService services.AuditServicer) *TransferHandler {
	return &TransferHandler{transferService: transferService, auditService: auditService}
}

// SendMoneyRequest represents the request payload for a peer transfer.
type SendMoneyRequest struct {
	RecipientEmail string  `json:"recipientEmail" example:"friend@example.com"`
	Amount         float64 `json:"amount" example:"20.00"`
	Description    string  `json:"description" example:"Dinner"`
}

// SenderView is the sender's state after a transfer.
type SenderView struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	NewBalance money.Cents `json:"newBalance" swaggertype:"number"`
}

// SendMoneyData is returned by a successful peer transfer.
type SendMoneyData struct {
	Sender      SenderView          `json:"sender"`
	Recipient   services.UserMatch  `json:"recipient"`
	Amount      money.Cents         `json:"amount" swaggertype:"number"`
	Transaction *models.Transaction `json:"transaction"`
}

// SendMoney transfers money to another user
// @Summary     Send money
// @Description Debits the caller's wallet and credits the recipient's atomically, recording an expense and an income in the Transfer category.
// @Tags        transfer
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SendMoneyRequest true "Transfer details"
// @Success     200 {object} SendMoneyData "Money sent"
// @Failure     400 {object} ErrorResponse "Invalid input, self transfer or insufficient balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Recipient not found"
// @Router      /transfer/send [post]
func (h *TransferHandler) SendMoney(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var in validator.TransferInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondWithError(c, apperrors.Validation("Invalid JSON payload"))
		return
	}
	if errs := validator.TransferBody(in); len(errs) > 0 {
		respondWithError(c, apperrors.Validation(errs...))
		return
	}

	amount, _ := money.Parse(in.Amount)
	description, _ := in.Description.(string)

	result, err := h.transferService.SendMoney(userID, in.RecipientEmail.(string), amount, strings.TrimSpace(description))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditPeerTransfer, "transaction", result.Transaction.ID, c.ClientIP(),
		map[string]any{"recipientId": result.Recipient.ID, "amount": result.Amount})

	respondOK(c, http.StatusOK, "Money sent successfully", SendMoneyData{
		Sender:      SenderView{ID: result.Sender.ID, Name: result.Sender.Name, NewBalance: result.Sender.Balance},
		Recipient:   services.UserMatch{ID: result.Recipient.ID, Name: result.Recipient.Name, Email: result.Recipient.Email},
		Amount:      result.Amount,
		Transaction: result.Transaction,
	})
}

// GetTransferHistory lists the caller's transfer records
// @Summary     Transfer history
// @Tags        transfer
// @Produce     json
// @Security    BearerAuth
// @Param       page  query int false "Page number (default 1)"
// @Param       limit query int false "Items per page (default 10, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transfers"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transfer/history [get]
func (h *TransferHandler) GetTransferHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := parsePage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	resp, err := h.transferService.GetTransferHistory(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchUsers finds transfer recipients by email. The term is a substring
// match, so partial input such as "bob" is accepted and not held to the email
// shape that register and send enforce.
// @Summary     Search recipients
// @Description Up to five users whose email contains the term, excluding the caller.
// @Tags        transfer
// @Produce     json
// @Security    BearerAuth
// @Param       email query string true "Email substring"
// @Success     200 {array} services.UserMatch "Matching users"
// @Failure     400 {object} ErrorResponse "Missing or too long search term"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transfer/search [get]
func (h *TransferHandler) SearchUsers(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	term := c.Query("email")
	if errs := validator.SearchQuery(term); len(errs) > 0 {
		respondWithError(c, apperrors.Validation(errs...))
		return
	}

	users, err := h.transferService.SearchUsers(userID, strings.TrimSpace(term))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(users), "data": users})
}
