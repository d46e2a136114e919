package models

import (
	"time"

	"spendify/internal/money"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// TransferCategory marks the mirror records written by card and peer transfers.
const TransferCategory = "Transfer"

// TransactionSource records which operation wrote a transaction.
type TransactionSource string

const (
	TransactionSourceManual       TransactionSource = "manual"
	TransactionSourcePeerTransfer TransactionSource = "peer_transfer"
	TransactionSourceCardTransfer TransactionSource = "card_transfer"
)

// Transaction is a settled income or expense owned by one user.
type Transaction struct {
	Base
	UserID      string            `gorm:"type:uuid;not null;index" json:"userId"`
	Amount      money.Cents       `gorm:"type:bigint;not null" json:"amount"`
	Type        TransactionType   `gorm:"size:10;not null" json:"type"`
	Category    string            `gorm:"size:50;not null;index" json:"category"`
	Description string            `gorm:"size:200" json:"description"`
	Date        time.Time         `gorm:"not null;index" json:"date"`
	Source      TransactionSource `gorm:"size:20;not null;default:manual" json:"source"`
}

// IsTransferRecord reports whether the transaction mirrors a card or peer
// transfer. Transfer records cannot be updated or deleted.
func (t *Transaction) IsTransferRecord() bool {
	return t.Source == TransactionSourcePeerTransfer || t.Source == TransactionSourceCardTransfer
}

// Contribution is the signed effect of the transaction on its owner's balance.
func (t *Transaction) Contribution() money.Cents {
	return SignedAmount(t.Type, t.Amount)
}

// SignedAmount returns +amount for income and -amount for expense.
func SignedAmount(txType TransactionType, amount money.Cents) money.Cents {
	if txType == TransactionTypeExpense {
		return -amount
	}
	return amount
}
