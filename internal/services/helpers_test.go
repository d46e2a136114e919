package services

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"spendify/internal/models"
	"spendify/internal/money"
)

const testSecret = "test-secret-key-for-signing-tokens"

func newTestUserService(db *gorm.DB) *userService {
	return &userService{db: db, now: time.Now, cost: bcrypt.MinCost}
}

func newTestTokenService(db *gorm.DB) *tokenService {
	return &tokenService{
		db:         db,
		users:      newTestUserService(db),
		secret:     []byte(testSecret),
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		now:        time.Now,
	}
}

func seedTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount money.Cents, category string, date time.Time) *models.Transaction {
	t.Helper()
	tx := &models.Transaction{
		UserID:   userID,
		Type:     txType,
		Amount:   amount,
		Category: category,
		Date:     date.UTC(),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to seed transaction: %v", err)
	}
	return tx
}

func countTransactions(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}
