package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"spendify/internal/models"
	"spendify/internal/money"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword satisfies the password-strength rules; fixtures hash it.
const TestPassword = "Corr3ct-Horse-Battery"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password, unique email and zero balance.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	return CreateTestUserWithBalance(t, db, 0)
}

// CreateTestUserWithBalance creates a user holding the given balance.
func CreateTestUserWithBalance(t *testing.T, db *gorm.DB, balance money.Cents) *models.User {
	t.Helper()
	n := nextID()
	return createUser(t, db, fmt.Sprintf("User %d", n), fmt.Sprintf("user%d@test.com", n), balance)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, name, email string, balance money.Cents) *models.User {
	t.Helper()
	return createUser(t, db, name, email, balance)
}

func createUser(t *testing.T, db *gorm.DB, name, email string, balance money.Cents) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Name:     name,
		Email:    strings.ToLower(email),
		Password: string(hash),
		Balance:  balance,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCard creates an active card with the given balance.
func CreateTestCard(t *testing.T, db *gorm.DB, userID string, balance money.Cents) *models.Card {
	t.Helper()

	last4 := fmt.Sprintf("%04d", nextID()%10000)
	card := &models.Card{
		UserID:         userID,
		Last4:          last4,
		MaskedNumber:   models.MaskCardNumber(last4),
		CardHolderName: "TEST HOLDER",
		Expiry:         "12/30",
		Balance:        balance,
		CardType:       models.CardTypeVisa,
		IsActive:       true,
	}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("failed to create test card: %v", err)
	}
	return card
}

// CreateTestTransaction records a transaction without touching any balance.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, amount money.Cents, category string) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:   userID,
		Type:     txType,
		Amount:   amount,
		Category: category,
		Date:     time.Now().UTC(),
		Source:   models.TransactionSourceManual,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// BalanceOf reloads a user's balance.
func BalanceOf(t *testing.T, db *gorm.DB, userID string) money.Cents {
	t.Helper()
	var user models.User
	if err := db.Select("balance").First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("failed to reload user balance: %v", err)
	}
	return user.Balance
}

// CardBalanceOf reloads a card's balance.
func CardBalanceOf(t *testing.T, db *gorm.DB, cardID string) money.Cents {
	t.Helper()
	var card models.Card
	if err := db.Select("balance").First(&card, "id = ?", cardID).Error; err != nil {
		t.Fatalf("failed to reload card balance: %v", err)
	}
	return card.Balance
}
