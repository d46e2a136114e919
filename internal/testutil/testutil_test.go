package testutil_test

import (
	"testing"

	"spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	var count int64
	for _, table := range []string{"users", "transactions", "cards", "refresh_tokens", "blacklisted_tokens", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDB_is_isolated(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestUser(t, first)

	var count int64
	second.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Errorf("expected isolated database, found %d users", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUserWithBalance(t, db, 5000)
	if user.ID == "" {
		t.Fatal("user should have an ID")
	}
	if got := testutil.BalanceOf(t, db, user.ID); got != 5000 {
		t.Errorf("expected balance 5000, got %d", got)
	}

	card := testutil.CreateTestCard(t, db, user.ID, 2500)
	if got := testutil.CardBalanceOf(t, db, card.ID); got != 2500 {
		t.Errorf("expected card balance 2500, got %d", got)
	}
	if len(card.Last4) != 4 {
		t.Errorf("expected 4-digit suffix, got %q", card.Last4)
	}

	tx := testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeIncome, 1000, "Salary")
	if tx.Amount != 1000 {
		t.Errorf("expected amount 1000, got %d", tx.Amount)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrCardNotFound, "custom message")
	got := testutil.AssertAppError(t, err, "CARD_NOT_FOUND")
	if got.Message != "custom message" {
		t.Errorf("unexpected message %q", got.Message)
	}
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
