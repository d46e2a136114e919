package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/money"
)

// Ledger applies signed deltas to user and card balances. Every change is a
// single UPDATE that increments the stored value in place, so concurrent
// requests never lose an update. Debits carry their balance check in the
// WHERE clause, making the check and the write one atomic step.
//
// Methods take the *gorm.DB to run on so callers can compose several ledger
// steps and record writes inside one db.Transaction.
type Ledger struct{}

// NewLedger creates a Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// CreditUser adds amount to the user's balance unconditionally.
func (l *Ledger) CreditUser(tx *gorm.DB, userID string, amount money.Cents) error {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// DebitUser subtracts amount only if the balance covers it. A refused debit
// reports the balance observed right after the refusal.
func (l *Ledger) DebitUser(tx *gorm.DB, userID string, amount money.Cents) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var user models.User
	if err := tx.Select("id", "balance").Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return apperrors.InsufficientFunds("Insufficient funds. Current balance: "+user.Balance.String(), user.Balance)
}

// ApplyUser routes a signed delta: negative values are guarded debits,
// positive values plain credits, zero is a no-op.
func (l *Ledger) ApplyUser(tx *gorm.DB, userID string, delta money.Cents) error {
	switch {
	case delta < 0:
		return l.DebitUser(tx, userID, delta.Neg())
	case delta > 0:
		return l.CreditUser(tx, userID, delta)
	default:
		return nil
	}
}

// CreditCard adds amount to an active card's balance.
func (l *Ledger) CreditCard(tx *gorm.DB, cardID string, amount money.Cents) error {
	res := tx.Model(&models.Card{}).
		Where("id = ? AND is_active = ?", cardID, true).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrCardNotFound
	}
	return nil
}

// DebitCard subtracts amount from an active card if its balance covers it.
func (l *Ledger) DebitCard(tx *gorm.DB, cardID string, amount money.Cents) error {
	res := tx.Model(&models.Card{}).
		Where("id = ? AND is_active = ? AND balance >= ?", cardID, true, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var card models.Card
	if err := tx.Select("id", "balance").Where("id = ? AND is_active = ?", cardID, true).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrCardNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return apperrors.InsufficientFunds("Insufficient funds. Current balance: "+card.Balance.String(), card.Balance)
}

// relabelInsufficient swaps the message of an insufficient-funds error and
// keeps its balance. Other errors pass through.
func relabelInsufficient(err error, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code == apperrors.ErrInsufficientFunds.Code {
		return apperrors.WithMessage(appErr, message)
	}
	return err
}
