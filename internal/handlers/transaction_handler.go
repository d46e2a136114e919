package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/pagination"
	"spendify/internal/services"
	"spendify/internal/validator"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// TransactionRequest documents the transaction body. Amount accepts a number
// or numeric string with at most two decimals.
type TransactionRequest struct {
	Amount      float64 `json:"amount" example:"42.50"`
	Type        string  `json:"type" enums:"income,expense"`
	Category    string  `json:"category" example:"Food"`
	Description string  `json:"description" example:"Lunch"`
	Date        string  `json:"date" example:"2025-03-14"`
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Records an income or expense and applies it to the wallet balance. An expense larger than the balance is rejected.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient funds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var in validator.TransactionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondWithError(c, apperrors.Validation("Invalid JSON payload"))
		return
	}
	if errs := validator.TransactionBody(in, false); len(errs) > 0 {
		respondWithError(c, apperrors.Validation(errs...))
		return
	}

	amount, _ := money.Parse(in.Amount)
	description, _ := in.Description.(string)
	date, _ := validator.ParseDate(in.Date)

	transaction, err := h.transactionService.CreateTransaction(
		userID,
		models.TransactionType(in.Type.(string)),
		amount,
		strings.TrimSpace(in.Category.(string)),
		strings.TrimSpace(description),
		date,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCreate, "transaction", transaction.ID, c.ClientIP(),
		map[string]any{"type": transaction.Type, "amount": transaction.Amount, "category": transaction.Category})

	respondOK(c, http.StatusCreated, "Transaction created successfully", transaction)
}

// GetUserTransactions lists the caller's transactions
// @Summary     List transactions
// @Description Paginated, filterable transaction list. Category and search match case-insensitively as plain substrings.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       type     query string false "income or expense"
// @Param       category query string false "Category substring"
// @Param       search   query string false "Description substring"
// @Param       month    query int    false "Month (1-12), combined with year"
// @Param       year     query int    false "Year (2000-2100)"
// @Param       page     query int    false "Page number (default 1)"
// @Param       limit    query int    false "Items per page (default 10, max 100)"
// @Param       sort     query string false "date, -date, amount, -amount, category, -category, type, -type, createdAt, -createdAt"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *TransactionHandler) GetUserTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	q, errs := validator.TransactionQuery(validator.QueryInput{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Month:    queryPtr(c, "month"),
		Year:     queryPtr(c, "year"),
		Page:     queryPtr(c, "page"),
		Limit:    queryPtr(c, "limit"),
	})
	if len(errs) > 0 {
		respondWithError(c, apperrors.Validation(errs...))
		return
	}

	filter := services.TransactionFilter{
		Type:     models.TransactionType(q.Type),
		Category: strings.TrimSpace(q.Category),
		Search:   strings.TrimSpace(q.Search),
		Month:    q.Month,
		Year:     q.Year,
		Sort:     q.Sort,
	}
	resp, err := h.transactionService.GetUserTransactions(userID, filter, pagination.PageRequest{Page: q.Page, Limit: q.Limit})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTransactionByID handles the retrieval of a single transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     401 {object} ErrorResponse "Not the owner"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	respondOK(c, http.StatusOK, "", transaction)
}

// UpdateTransaction edits a transaction
// @Summary     Update a transaction
// @Description Applies the difference between the old and new signed amounts to the wallet balance.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Transaction ID"
// @Param       request body TransactionRequest true "Fields to change"
// @Success     200 {object} models.Transaction "Transaction updated"
// @Failure     400 {object} ErrorResponse "Invalid input, insufficient funds or transfer record"
// @Failure     401 {object} ErrorResponse "Not the owner"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var in validator.TransactionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondWithError(c, apperrors.Validation("Invalid JSON payload"))
		return
	}
	if errs := validator.TransactionBody(in, true); len(errs) > 0 {
		respondWithError(c, apperrors.Validation(errs...))
		return
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, c.Param("id"), transactionPatch(in))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditUpdate, "transaction", transaction.ID, c.ClientIP(),
		map[string]any{"type": transaction.Type, "amount": transaction.Amount, "category": transaction.Category})

	respondOK(c, http.StatusOK, "Transaction updated successfully", transaction)
}

// transactionPatch converts a validated partial body into a patch.
func transactionPatch(in validator.TransactionInput) services.TransactionPatch {
	var patch services.TransactionPatch
	if in.Amount != nil {
		amount, _ := money.Parse(in.Amount)
		patch.Amount = &amount
	}
	if in.Type != nil {
		t := models.TransactionType(in.Type.(string))
		patch.Type = &t
	}
	if in.Category != nil {
		category := strings.TrimSpace(in.Category.(string))
		patch.Category = &category
	}
	if in.Description != nil {
		description := strings.TrimSpace(in.Description.(string))
		patch.Description = &description
	}
	if in.Date != nil {
		date, _ := validator.ParseDate(in.Date)
		patch.Date = &date
	}
	return patch
}

// DeleteTransaction removes a transaction
// @Summary     Delete a transaction
// @Description Reverses the transaction's effect on the wallet balance. Income that has already been spent cannot be deleted.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} MessageResponse "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Income already spent or transfer record"
// @Failure     401 {object} ErrorResponse "Not the owner"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id := c.Param("id")
	if err := h.transactionService.DeleteTransaction(userID, id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDelete, "transaction", id, c.ClientIP(), nil)

	respondOK(c, http.StatusOK, "Transaction deleted successfully", emptyData)
}
