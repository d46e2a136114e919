package services

import (
	"sync"
	"testing"
	"time"

	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/pagination"
	"spendify/internal/testutil"
	"spendify/internal/uuid"
)

func TestCreateTransaction(t *testing.T) {
	t.Run("income_increases_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUser(t, db)

		tx, err := svc.CreateTransaction(user.ID, models.TransactionTypeIncome, 5000, "Salary", "March", time.Now())
		testutil.AssertNoError(t, err)

		if tx.ID == "" {
			t.Fatal("expected an ID")
		}
		if got := testutil.BalanceOf(t, db, user.ID); got != 5000 {
			t.Errorf("expected balance 5000, got %d", got)
		}
	})

	t.Run("expense_decreases_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUserWithBalance(t, db, 10000)

		_, err := svc.CreateTransaction(user.ID, models.TransactionTypeExpense, 3000, "Food", "", time.Now())
		testutil.AssertNoError(t, err)

		if got := testutil.BalanceOf(t, db, user.ID); got != 7000 {
			t.Errorf("expected balance 7000, got %d", got)
		}
	})

	t.Run("expense_over_balance_is_refused", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUserWithBalance(t, db, 1000)

		_, err := svc.CreateTransaction(user.ID, models.TransactionTypeExpense, 1500, "Rent", "", time.Now())
		appErr := testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")
		if appErr.Message != "Insufficient funds. Current balance: 10.00" {
			t.Errorf("unexpected message %q", appErr.Message)
		}
		if appErr.Fields["balance"] != money.Cents(1000) {
			t.Errorf("expected balance field, got %v", appErr.Fields)
		}
		if n := countTransactions(t, db, user.ID); n != 0 {
			t.Errorf("no record should be written, found %d", n)
		}
	})

	t.Run("zero_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateTransaction(user.ID, models.TransactionTypeIncome, 0, "Salary", "", time.Now())
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})

	t.Run("default_date_when_zero", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUser(t, db)

		tx, err := svc.CreateTransaction(user.ID, models.TransactionTypeIncome, 100, "Gift", "", time.Time{})
		testutil.AssertNoError(t, err)
		if time.Since(tx.Date) > time.Minute {
			t.Errorf("expected date near now, got %v", tx.Date)
		}
	})
}

func TestCreateTransaction_concurrency(t *testing.T) {
	t.Run("parallel_incomes_all_land", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUserWithBalance(t, db, money.FromUnits(1000))

		var wg sync.WaitGroup
		for _, amount := range []money.Cents{money.FromUnits(500), money.FromUnits(300)} {
			wg.Add(1)
			go func(amount money.Cents) {
				defer wg.Done()
				if _, err := svc.CreateTransaction(user.ID, models.TransactionTypeIncome, amount, "Salary", "", time.Now()); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}(amount)
		}
		wg.Wait()

		if got := testutil.BalanceOf(t, db, user.ID); got != money.FromUnits(1800) {
			t.Errorf("expected 1800.00, got %s", got)
		}
	})

	t.Run("racing_expenses_cannot_overdraw", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUserWithBalance(t, db, money.FromUnits(100))

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.CreateTransaction(user.ID, models.TransactionTypeExpense, money.FromUnits(70), "Food", "", time.Now())
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		failures := 0
		for err := range errs {
			if err != nil {
				testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")
				failures++
			}
		}
		if failures != 1 {
			t.Errorf("expected exactly one refusal, got %d", failures)
		}
		if got := testutil.BalanceOf(t, db, user.ID); got != money.FromUnits(30) {
			t.Errorf("expected 30.00, got %s", got)
		}
		if n := countTransactions(t, db, user.ID); n != 1 {
			t.Errorf("expected one record, got %d", n)
		}
	})

	t.Run("hundred_mixed_deltas", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		start := money.FromUnits(10_000)
		user := testutil.CreateTestUserWithBalance(t, db, start)

		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				txType, amount := models.TransactionTypeIncome, money.Cents(1250)
				if i%2 == 1 {
					txType, amount = models.TransactionTypeExpense, 775
				}
				if _, err := svc.CreateTransaction(user.ID, txType, amount, "Misc", "", time.Now()); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		want := start + 50*1250 - 50*775
		if got := testutil.BalanceOf(t, db, user.ID); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
		if n := countTransactions(t, db, user.ID); n != 100 {
			t.Errorf("expected 100 records, got %d", n)
		}
	})
}

func TestGetTransactionByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestTransaction(t, db, user.ID, models.TransactionTypeIncome, 100, "Gift")

		tx, err := svc.GetTransactionByID(user.ID, created.ID)
		testutil.AssertNoError(t, err)
		if tx.Category != "Gift" {
			t.Errorf("expected Gift, got %s", tx.Category)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())

		_, err := svc.GetTransactionByID(uuid.New(), uuid.New())
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
		_, err = svc.GetTransactionByID(uuid.New(), "123")
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})

	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestTransaction(t, db, owner.ID, models.TransactionTypeIncome, 100, "Gift")

		_, err := svc.GetTransactionByID(other.ID, created.ID)
		appErr := testutil.AssertAppError(t, err, "NOT_AUTHORIZED")
		if appErr.Message != "Not authorized to access this transaction" {
			t.Errorf("unexpected message %q", appErr.Message)
		}
	})
}

func TestGetUserTransactions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTransactionService(db, NewLedger())
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	march := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	lastYear := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	seedTransaction(t, db, user.ID, models.TransactionTypeIncome, 5000, "Salary", march)
	seedTransaction(t, db, user.ID, models.TransactionTypeExpense, 1200, "Food", march.Add(time.Hour))
	seedTransaction(t, db, user.ID, models.TransactionTypeExpense, 300, "Fuel", april)
	seedTransaction(t, db, user.ID, models.TransactionTypeExpense, 800, "Food & Drink", lastYear)
	seedTransaction(t, db, other.ID, models.TransactionTypeExpense, 999, "Food", march)
	db.Model(&models.Transaction{}).Where("category = ?", "Fuel").Update("description", "Shell station 100%")

	list := func(t *testing.T, f TransactionFilter, page pagination.PageRequest) *pagination.PageResponse[models.Transaction] {
		t.Helper()
		res, err := svc.GetUserTransactions(user.ID, f, page)
		testutil.AssertNoError(t, err)
		return res
	}

	t.Run("defaults_to_newest_first", func(t *testing.T) {
		res := list(t, TransactionFilter{}, pagination.PageRequest{})
		if res.Total != 4 || res.Count != 4 || res.CurrentPage != 1 || res.TotalPages != 1 {
			t.Fatalf("unexpected page %+v", res)
		}
		if res.Data[0].Category != "Fuel" || res.Data[3].Category != "Food & Drink" {
			t.Errorf("expected newest first, got %s .. %s", res.Data[0].Category, res.Data[3].Category)
		}
	})

	t.Run("filter_by_type", func(t *testing.T) {
		res := list(t, TransactionFilter{Type: models.TransactionTypeIncome}, pagination.PageRequest{})
		if res.Total != 1 || res.Data[0].Category != "Salary" {
			t.Errorf("unexpected result %+v", res.Data)
		}
	})

	t.Run("filter_by_category_substring", func(t *testing.T) {
		res := list(t, TransactionFilter{Category: "food"}, pagination.PageRequest{})
		if res.Total != 2 {
			t.Errorf("expected 2 food rows, got %d", res.Total)
		}
	})

	t.Run("wildcards_match_literally", func(t *testing.T) {
		if res := list(t, TransactionFilter{Category: "F__d"}, pagination.PageRequest{}); res.Total != 0 {
			t.Errorf("underscore must not act as a wildcard, got %d rows", res.Total)
		}
		if res := list(t, TransactionFilter{Search: "100%"}, pagination.PageRequest{}); res.Total != 1 {
			t.Errorf("expected literal percent match, got %d rows", res.Total)
		}
		if res := list(t, TransactionFilter{Search: "%"}, pagination.PageRequest{}); res.Total != 1 {
			t.Errorf("lone percent must only match descriptions containing it, got %d rows", res.Total)
		}
	})

	t.Run("filter_by_month_and_year", func(t *testing.T) {
		if res := list(t, TransactionFilter{Year: 2026, Month: 3}, pagination.PageRequest{}); res.Total != 2 {
			t.Errorf("expected 2 rows in March 2026, got %d", res.Total)
		}
		if res := list(t, TransactionFilter{Year: 2026}, pagination.PageRequest{}); res.Total != 3 {
			t.Errorf("expected 3 rows in 2026, got %d", res.Total)
		}
	})

	t.Run("sort_by_amount_ascending", func(t *testing.T) {
		res := list(t, TransactionFilter{Sort: "amount"}, pagination.PageRequest{})
		if res.Data[0].Amount != 300 || res.Data[3].Amount != 5000 {
			t.Errorf("unexpected order %d .. %d", res.Data[0].Amount, res.Data[3].Amount)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		res := list(t, TransactionFilter{}, pagination.PageRequest{Page: 2, Limit: 3})
		if res.Count != 1 || res.Total != 4 || res.TotalPages != 2 || res.CurrentPage != 2 {
			t.Errorf("unexpected page %+v", res)
		}
	})
}

func TestUpdateTransaction(t *testing.T) {
	t.Run("amount_change_applies_difference", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUser(t, db)
		tx, err := svc.CreateTransaction(user.ID, models.TransactionTypeIncome, 1000, "Salary", "", time.Now())
		testutil.AssertNoError(t, err)

		amount := money.Cents(1500)
		updated, err := svc.UpdateTransaction(user.ID, tx.ID, TransactionPatch{Amount: &amount})
		testutil.AssertNoError(t, err)
		if updated.Amount != 1500 {
			t.Errorf("expected amount 1500, got %d", updated.Amount)
		}
		if got := testutil.BalanceOf(t, db, user.ID); got != 1500 {
			t.Errorf("expected balance 1500, got %d", got)
		}
	})

	t.Run("type_flip_reverts_and_reapplies", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUserWithBalance(t, db, 1000)
		tx, err := svc.CreateTransaction(user.ID, models.TransactionTypeExpense, 400, "Food", "", time.Now())
		testutil.AssertNoError(t, err)

		income := models.TransactionTypeIncome
		_, err = svc.UpdateTransaction(user.ID, tx.ID, TransactionPatch{Type: &income})
		testutil.AssertNoError(t, err)
		// 1000 - 400, then +400 +400
		if got := testutil.BalanceOf(t, db, user.ID); got != 1400 {
			t.Errorf("expected 1400, got %d", got)
		}
	})

	t.Run("net_withdrawal_is_guarded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUserWithBalance(t, db, 500)
		tx, err := svc.CreateTransaction(user.ID, models.TransactionTypeExpense, 200, "Food", "", time.Now())
		testutil.AssertNoError(t, err)

		amount := money.Cents(900)
		category := "Groceries"
		_, err = svc.UpdateTransaction(user.ID, tx.ID, TransactionPatch{Amount: &amount, Category: &category})
		testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")

		if got := testutil.BalanceOf(t, db, user.ID); got != 300 {
			t.Errorf("balance must be untouched, got %d", got)
		}
		stored, err := svc.GetTransactionByID(user.ID, tx.ID)
		testutil.AssertNoError(t, err)
		if stored.Amount != 200 || stored.Category != "Food" {
			t.Errorf("record must be untouched, got %+v", stored)
		}
	})

	t.Run("fields_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUser(t, db)
		tx, err := svc.CreateTransaction(user.ID, models.TransactionTypeIncome, 1000, "Salary", "", time.Now())
		testutil.AssertNoError(t, err)

		description := "bonus included"
		date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		updated, err := svc.UpdateTransaction(user.ID, tx.ID, TransactionPatch{Description: &description, Date: &date})
		testutil.AssertNoError(t, err)
		if updated.Description != description || !updated.Date.Equal(date) {
			t.Errorf("unexpected update %+v", updated)
		}
		if got := testutil.BalanceOf(t, db, user.ID); got != 1000 {
			t.Errorf("expected balance unchanged, got %d", got)
		}
	})

	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		tx, err := svc.CreateTransaction(owner.ID, models.TransactionTypeIncome, 1000, "Salary", "", time.Now())
		testutil.AssertNoError(t, err)

		amount := money.Cents(1)
		_, err = svc.UpdateTransaction(other.ID, tx.ID, TransactionPatch{Amount: &amount})
		appErr := testutil.AssertAppError(t, err, "NOT_AUTHORIZED")
		if appErr.Message != "Not authorized to update this transaction" {
			t.Errorf("unexpected message %q", appErr.Message)
		}
	})
}

func TestDeleteTransaction(t *testing.T) {
	t.Run("expense_is_refunded", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUserWithBalance(t, db, 1000)
		tx, err := svc.CreateTransaction(user.ID, models.TransactionTypeExpense, 400, "Food", "", time.Now())
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.DeleteTransaction(user.ID, tx.ID))
		if got := testutil.BalanceOf(t, db, user.ID); got != 1000 {
			t.Errorf("expected 1000, got %d", got)
		}
		_, err = svc.GetTransactionByID(user.ID, tx.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})

	t.Run("spent_income_cannot_be_deleted", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		user := testutil.CreateTestUser(t, db)
		income, err := svc.CreateTransaction(user.ID, models.TransactionTypeIncome, 1000, "Salary", "", time.Now())
		testutil.AssertNoError(t, err)
		_, err = svc.CreateTransaction(user.ID, models.TransactionTypeExpense, 800, "Rent", "", time.Now())
		testutil.AssertNoError(t, err)

		err = svc.DeleteTransaction(user.ID, income.ID)
		appErr := testutil.AssertAppError(t, err, "INSUFFICIENT_FUNDS")
		if appErr.Message != "Cannot delete this income: it has already been spent" {
			t.Errorf("unexpected message %q", appErr.Message)
		}
		if appErr.Fields["balance"] != money.Cents(200) {
			t.Errorf("expected balance field 200, got %v", appErr.Fields["balance"])
		}
		if n := countTransactions(t, db, user.ID); n != 2 {
			t.Errorf("record must survive, found %d", n)
		}
	})

	t.Run("wrong_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewLedger())
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestTransaction(t, db, owner.ID, models.TransactionTypeIncome, 100, "Gift")

		appErr := testutil.AssertAppError(t, svc.DeleteTransaction(other.ID, created.ID), "NOT_AUTHORIZED")
		if appErr.Message != "Not authorized to delete this transaction" {
			t.Errorf("unexpected message %q", appErr.Message)
		}
	})
}
