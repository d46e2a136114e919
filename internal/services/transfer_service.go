package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/pagination"
	"spendify/internal/sanitize"
)

// searchLimit caps recipient search results.
const searchLimit = 5

// transferService moves money between users' wallets.
type transferService struct {
	db     *gorm.DB
	ledger *Ledger
}

// NewTransferService creates a new TransferServicer.
func NewTransferService(db *gorm.DB, ledger *Ledger) TransferServicer {
	return &transferService{db: db, ledger: ledger}
}

// SendMoney debits the sender, credits the recipient found by exact email,
// then writes one mirror record per side. The unit commits or rolls back as
// a whole.
func (s *transferService) SendMoney(senderID, recipientEmail string, amount money.Cents, description string) (*PeerTransferResult, error) {
	if amount <= 0 {
		return nil, apperrors.Validation("Amount must be at least 0.01")
	}
	recipientEmail = strings.ToLower(strings.TrimSpace(recipientEmail))
	description = strings.TrimSpace(description)

	var result *PeerTransferResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sender models.User
		if err := tx.Where("id = ?", senderID).First(&sender).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if sender.Balance < amount {
			return apperrors.InsufficientFunds("Insufficient balance", sender.Balance)
		}

		var recipient models.User
		if err := tx.Where("email = ?", recipientEmail).First(&recipient).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrRecipientNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if recipient.ID == sender.ID {
			return apperrors.ErrSelfTransfer
		}

		if err := s.ledger.DebitUser(tx, sender.ID, amount); err != nil {
			return relabelInsufficient(err, "Insufficient balance")
		}
		if err := s.ledger.CreditUser(tx, recipient.ID, amount); err != nil {
			return err
		}

		sentNote, receivedNote := description, description
		if description == "" {
			sentNote = fmt.Sprintf("Sent to %s (%s)", recipient.Name, recipient.Email)
			receivedNote = fmt.Sprintf("Received from %s (%s)", sender.Name, sender.Email)
		}
		now := time.Now().UTC()
		sent := &models.Transaction{
			UserID:      sender.ID,
			Type:        models.TransactionTypeExpense,
			Amount:      amount,
			Category:    models.TransferCategory,
			Description: sentNote,
			Date:        now,
			Source:      models.TransactionSourcePeerTransfer,
		}
		received := &models.Transaction{
			UserID:      recipient.ID,
			Type:        models.TransactionTypeIncome,
			Amount:      amount,
			Category:    models.TransferCategory,
			Description: receivedNote,
			Date:        now,
			Source:      models.TransactionSourcePeerTransfer,
		}
		if err := tx.Create(sent).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(received).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var fresh models.User
		if err := tx.Select("id", "balance").Where("id = ?", sender.ID).Take(&fresh).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		sender.Balance = fresh.Balance

		result = &PeerTransferResult{Sender: &sender, Recipient: &recipient, Amount: amount, Transaction: sent}
		return nil
	})
	observeLedger("peer_transfer", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransferHistory lists the user's transfer records, newest first.
func (s *transferService) GetTransferHistory(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).
		Where("user_id = ? AND category = ?", userID, models.TransferCategory).
		Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(orderBy("-date"), pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page, total)
	return &result, nil
}

// SearchUsers finds up to five other users whose email contains the term.
// The term is matched literally; wildcard characters are escaped.
func (s *transferService) SearchUsers(userID, emailTerm string) ([]UserMatch, error) {
	term := strings.ToLower(strings.TrimSpace(emailTerm))
	matches := []UserMatch{}
	if term == "" {
		return matches, nil
	}

	if err := s.db.Model(&models.User{}).
		Select("id", "name", "email").
		Where(`LOWER(email) LIKE ? ESCAPE '\'`, sanitize.LikePattern(term)).
		Where("id <> ?", userID).
		Order("email").
		Limit(searchLimit).
		Scan(&matches).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return matches, nil
}
