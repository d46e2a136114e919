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

// CardHandler handles stored-value card requests.
type CardHandler struct {
	cardService  services.CardServicer
	auditService services.AuditServicer
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardService services.CardServicer, auditService services.AuditServicer) *CardHandler {
	return &CardHandler{cardService: cardService, auditService: auditService}
}

// CreateCardRequest represents the request payload for adding a card. The
// full number and CVV are validated but never stored.
type CreateCardRequest struct {
	CardNumber     string `json:"cardNumber" binding:"required,card_number" example:"4111 1111 1111 1111"`
	CardHolderName string `json:"cardHolderName" binding:"required" example:"JANE DOE"`
	Expiry         string `json:"expiry" binding:"required,card_expiry" example:"08/28"`
	CVV            string `json:"cvv" binding:"required,cvv" example:"123"`
	CardType       string `json:"cardType" binding:"omitempty,card_type" enums:"visa,mastercard,amex,discover,other"`
	Balance        any    `json:"balance" swaggertype:"number" example:"250.00"`
}

// UpdateCardRequest lists the editable card fields.
type UpdateCardRequest struct {
	CardHolderName *string `json:"cardHolderName" binding:"omitempty,min=1,max=100"`
	Expiry         *string `json:"expiry" binding:"omitempty,card_expiry"`
	CardType       *string `json:"cardType" binding:"omitempty,card_type"`
}

// CardTransferRequest moves money between two of the caller's cards.
type CardTransferRequest struct {
	FromCardID string `json:"fromCardId" example:"0190f1b2-..."`
	ToCardID   string `json:"toCardId" example:"0190f1b2-..."`
	Amount     any    `json:"amount" swaggertype:"number" example:"25.00"`
}

// CardSide is one card's state after a transfer.
type CardSide struct {
	ID           string      `json:"id"`
	MaskedNumber string      `json:"maskedNumber"`
	Balance      money.Cents `json:"balance" swaggertype:"number"`
}

// CardTransferData is returned by a card-to-card transfer.
type CardTransferData struct {
	FromCard CardSide    `json:"fromCard"`
	ToCard   CardSide    `json:"toCard"`
	Amount   money.Cents `json:"amount" swaggertype:"number"`
}

var cardMessages = map[string]string{
	"CardNumber":     "Please provide a valid 16-digit card number",
	"CardHolderName": "Please provide card holder name",
	"Expiry":         "Expiry must be in MM/YY format",
	"CVV":            "CVV must be 3 or 4 digits",
	"CardType":       "Card type must be one of: " + strings.Join(validator.CardTypes, ", "),
}

// GetUserCards lists the caller's active cards
// @Summary     List cards
// @Tags        cards
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Card "Active cards"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /cards [get]
func (h *CardHandler) GetUserCards(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cards, err := h.cardService.GetUserCards(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(cards), "data": cards})
}

// GetCardByID returns one card
// @Summary     Get a card
// @Tags        cards
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Card ID"
// @Success     200 {object} models.Card "Card"
// @Failure     401 {object} ErrorResponse "Not the owner"
// @Failure     404 {object} ErrorResponse "Card not found"
// @Router      /cards/{id} [get]
func (h *CardHandler) GetCardByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	card, err := h.cardService.GetCardByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", card)
}

// CreateCard adds a card
// @Summary     Add a card
// @Description Stores the last four digits, holder name, expiry, type and opening balance. The card type is detected from the number when omitted.
// @Tags        cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCardRequest true "Card details"
// @Success     201 {object} models.Card "Card added"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /cards [post]
func (h *CardHandler) CreateCard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.Validation(validator.Translate(err, cardMessages, "Invalid card details")...))
		return
	}
	balance, msg := validator.CardBalance(req.Balance)
	if msg != "" {
		respondWithError(c, apperrors.Validation(msg))
		return
	}

	card, err := h.cardService.CreateCard(userID, services.CardInput{
		Number:     req.CardNumber,
		HolderName: req.CardHolderName,
		Expiry:     req.Expiry,
		CardType:   models.CardType(req.CardType),
		Balance:    balance,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreate, "card", card.ID, c.ClientIP(),
		map[string]any{"last4": card.Last4, "cardType": card.CardType, "balance": card.Balance})

	respondOK(c, http.StatusCreated, "Card added successfully", card)
}

// UpdateCard edits a card's holder name, expiry or type
// @Summary     Update a card
// @Description Only the holder name, expiry and card type can change. Balances move through transfers.
// @Tags        cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Card ID"
// @Param       request body UpdateCardRequest true "Fields to change"
// @Success     200 {object} models.Card "Card updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Not the owner"
// @Failure     404 {object} ErrorResponse "Card not found"
// @Router      /cards/{id} [put]
func (h *CardHandler) UpdateCard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.Validation(validator.Translate(err, cardMessages, "Invalid card details")...))
		return
	}

	patch := services.CardPatch{HolderName: req.CardHolderName, Expiry: req.Expiry}
	if req.CardType != nil {
		t := models.CardType(*req.CardType)
		patch.CardType = &t
	}

	card, err := h.cardService.UpdateCard(userID, c.Param("id"), patch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdate, "card", card.ID, c.ClientIP(),
		map[string]any{"cardHolderName": card.CardHolderName, "expiry": card.Expiry, "cardType": card.CardType})

	respondOK(c, http.StatusOK, "Card updated successfully", card)
}

// DeleteCard deactivates a card
// @Summary     Delete a card
// @Description Deactivates the card. Deactivated cards are hidden and cannot take part in transfers.
// @Tags        cards
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Card ID"
// @Success     200 {object} MessageResponse "Card deleted"
// @Failure     401 {object} ErrorResponse "Not the owner"
// @Failure     404 {object} ErrorResponse "Card not found"
// @Router      /cards/{id} [delete]
func (h *CardHandler) DeleteCard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id := c.Param("id")
	if err := h.cardService.DeleteCard(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDelete, "card", id, c.ClientIP(), nil)

	respondOK(c, http.StatusOK, "Card deleted successfully", emptyData)
}

// TransferBetweenCards moves money between two of the caller's cards
// @Summary     Card-to-card transfer
// @Description Debits the source card and credits the destination atomically, recording an expense and an income in the Transfer category.
// @Tags        cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CardTransferRequest true "Transfer details"
// @Success     200 {object} CardTransferData "Transfer completed"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient balance"
// @Failure     401 {object} ErrorResponse "Not the owner"
// @Failure     404 {object} ErrorResponse "Card not found"
// @Router      /cards/transfer [post]
func (h *CardHandler) TransferBetweenCards(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CardTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.Validation("Please provide fromCardId, toCardId, and amount"))
		return
	}

	var amount money.Cents
	if req.Amount != nil {
		if msg := validator.Amount(req.Amount); msg != "" {
			respondWithError(c, apperrors.Validation(msg))
			return
		}
		amount, _ = money.Parse(req.Amount)
	}

	result, err := h.cardService.TransferBetweenCards(userID, req.FromCardID, req.ToCardID, amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCardTransfer, "card", result.FromCard.ID, c.ClientIP(),
		map[string]any{"fromCardId": result.FromCard.ID, "toCardId": result.ToCard.ID, "amount": result.Amount})

	respondOK(c, http.StatusOK, "Transfer completed successfully", CardTransferData{
		FromCard: CardSide{ID: result.FromCard.ID, MaskedNumber: result.FromCard.MaskedNumber, Balance: result.FromCard.Balance},
		ToCard:   CardSide{ID: result.ToCard.ID, MaskedNumber: result.ToCard.MaskedNumber, Balance: result.ToCard.Balance},
		Amount:   result.Amount,
	})
}
