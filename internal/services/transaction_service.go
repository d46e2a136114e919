package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/pagination"
	"spendify/internal/sanitize"
	"spendify/internal/uuid"
)

// sortColumns maps whitelisted sort tokens to columns.
var sortColumns = map[string]string{
	"date":      "date",
	"amount":    "amount",
	"category":  "category",
	"type":      "type",
	"createdAt": "created_at",
}

// transactionService handles transaction bookkeeping. Every write pairs the
// record change with its balance delta inside one database transaction.
type transactionService struct {
	db     *gorm.DB
	ledger *Ledger
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, ledger *Ledger) TransactionServicer {
	return &transactionService{db: db, ledger: ledger}
}

// CreateTransaction records an income or expense and applies its contribution
// to the owner's balance. An expense the balance cannot cover is refused and
// nothing is recorded.
func (s *transactionService) CreateTransaction(
	userID string,
	txType models.TransactionType,
	amount money.Cents,
	category string,
	description string,
	date time.Time,
) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("Amount must be at least 0.01")
	}
	if date.IsZero() {
		date = time.Now()
	}

	transaction := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Category:    strings.TrimSpace(category),
		Description: strings.TrimSpace(description),
		Date:        date.UTC(),
		Source:      models.TransactionSourceManual,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.ApplyUser(tx, userID, transaction.Contribution()); err != nil {
			return err
		}
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	observeLedger("create_transaction", err)
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// GetTransactionByID retrieves a transaction owned by userID.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	return s.load(s.db, userID, transactionID, "access")
}

// load finds a transaction and checks ownership; verb names the attempted
// action in the ownership error.
func (s *transactionService) load(tx *gorm.DB, userID, transactionID, verb string) (*models.Transaction, error) {
	if !uuid.IsValid(transactionID) {
		return nil, apperrors.ErrTransactionNotFound
	}
	var transaction models.Transaction
	if err := tx.Where("id = ?", transactionID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if transaction.UserID != userID {
		return nil, apperrors.WithMessage(apperrors.ErrNotAuthorized, "Not authorized to "+verb+" this transaction")
	}
	return &transaction, nil
}

// GetUserTransactions lists a user's transactions with filters and pagination.
func (s *transactionService) GetUserTransactions(userID string, filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(orderBy(filter.Sort), pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page, total)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where(`LOWER(category) LIKE LOWER(?) ESCAPE '\'`, sanitize.LikePattern(f.Category))
	}
	if f.Search != "" {
		q = q.Where(`LOWER(description) LIKE LOWER(?) ESCAPE '\'`, sanitize.LikePattern(f.Search))
	}
	if f.Year != 0 {
		from, to := yearRange(f.Year)
		if f.Month != 0 {
			from, to = monthRange(f.Year, f.Month)
		}
		q = q.Where("date >= ? AND date < ?", from, to)
	}
	return q
}

// orderBy returns a scope sorting by a whitelisted token such as "-date".
// Ties fall back to id, which follows insertion order.
func orderBy(token string) func(*gorm.DB) *gorm.DB {
	desc := strings.HasPrefix(token, "-")
	column, ok := sortColumns[strings.TrimPrefix(token, "-")]
	if !ok {
		column, desc = "date", true
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: column}, Desc: desc},
			{Column: clause.Column{Name: "id"}, Desc: desc},
		}})
	}
}

func monthRange(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func yearRange(year int) (time.Time, time.Time) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

// UpdateTransaction edits a transaction and applies the difference between
// its new and old contributions. A net withdrawal is a guarded debit.
func (s *transactionService) UpdateTransaction(userID, transactionID string, patch TransactionPatch) (*models.Transaction, error) {
	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		transaction, err := s.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, transactionID, "update")
		if err != nil {
			return err
		}
		if transaction.IsTransferRecord() {
			return apperrors.ErrTransferRecord
		}

		oldContribution := transaction.Contribution()
		updates := map[string]any{}
		if patch.Amount != nil {
			if *patch.Amount <= 0 {
				return apperrors.Validation("Amount must be at least 0.01")
			}
			transaction.Amount = *patch.Amount
			updates["amount"] = transaction.Amount
		}
		if patch.Type != nil {
			transaction.Type = *patch.Type
			updates["type"] = transaction.Type
		}
		if patch.Category != nil {
			transaction.Category = strings.TrimSpace(*patch.Category)
			updates["category"] = transaction.Category
		}
		if patch.Description != nil {
			transaction.Description = strings.TrimSpace(*patch.Description)
			updates["description"] = transaction.Description
		}
		if patch.Date != nil {
			transaction.Date = patch.Date.UTC()
			updates["date"] = transaction.Date
		}

		if err := s.ledger.ApplyUser(tx, userID, transaction.Contribution()-oldContribution); err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(transaction).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		result = transaction
		return nil
	})
	observeLedger("update_transaction", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteTransaction removes a transaction and reverts its contribution.
// Reverting income that has already been spent is refused.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		transaction, err := s.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), userID, transactionID, "delete")
		if err != nil {
			return err
		}
		if transaction.IsTransferRecord() {
			return apperrors.ErrTransferRecord
		}

		if err := s.ledger.ApplyUser(tx, userID, transaction.Contribution().Neg()); err != nil {
			return relabelInsufficient(err, "Cannot delete this income: it has already been spent")
		}
		if err := tx.Delete(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	observeLedger("delete_transaction", err)
	return err
}
