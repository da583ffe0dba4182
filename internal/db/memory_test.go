package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/abkawan/card-ledger/internal/db"
	"github.com/abkawan/card-ledger/internal/models"
	"github.com/abkawan/card-ledger/internal/service"
)

var fixedClock = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *db.Memory {
	t.Helper()
	return db.NewMemory().WithClock(func() time.Time { return fixedClock })
}

func TestInsertTransactionConflict(t *testing.T) {
	store := newStore(t)
	store.AddTransaction(models.Transaction{TransactionID: "0000000000000001"})

	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tx.Rollback()

	err = tx.InsertTransaction(context.Background(), &models.Transaction{TransactionID: "0000000000000001"})
	if !errors.Is(err, service.ErrTransactionIDConflict) {
		t.Errorf("error = %v, want ErrTransactionIDConflict", err)
	}
}

func TestRollbackDiscardsStagedWrites(t *testing.T) {
	store := newStore(t)
	store.AddAccount(models.Account{AccountID: 1, CurrentBalance: decimal.RequireFromString("100.00")})

	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	account, err := tx.GetAccountForUpdate(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	account.CurrentBalance = decimal.RequireFromString("999.00")
	if err := tx.UpdateAccount(context.Background(), account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.InsertTransaction(context.Background(), &models.Transaction{TransactionID: "0000000000000001"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.GetAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := decimal.RequireFromString("100.00"); !got.CurrentBalance.Equal(want) {
		t.Errorf("balance after rollback = %s, want %s", got.CurrentBalance, want)
	}
	if _, total, _ := store.FindAll(context.Background(), 0, 10); total != 0 {
		t.Errorf("transactions after rollback = %d, want 0", total)
	}
}

func TestCommitStampsTimestamps(t *testing.T) {
	store := newStore(t)
	store.AddAccount(models.Account{AccountID: 1})

	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.InsertTransaction(context.Background(), &models.Transaction{TransactionID: "0000000000000001"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, err := tx.GetOrCreateCategoryBalance(context.Background(), 1, "01", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Balance.IsZero() {
		t.Errorf("new category balance = %s, want 0", balance.Balance)
	}
	if err := tx.SaveCategoryBalance(context.Background(), balance); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A second Rollback after Commit is a no-op, mirroring database/sql.
	if err := tx.Rollback(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txn, err := store.GetTransaction(context.Background(), "0000000000000001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !txn.CreatedAt.Equal(fixedClock) {
		t.Errorf("created_at = %v, want %v", txn.CreatedAt, fixedClock)
	}
	stored := store.CategoryBalance(1, "01", 1)
	if stored == nil {
		t.Fatal("category balance was not stored")
	}
	if !stored.CreatedAt.Equal(fixedClock) || !stored.UpdatedAt.Equal(fixedClock) {
		t.Errorf("category balance stamps = %v/%v, want %v", stored.CreatedAt, stored.UpdatedAt, fixedClock)
	}
}

func TestLatestTransactionIDUsesInsertionOrder(t *testing.T) {
	store := newStore(t)
	// The newest row by creation is not the max by timestamp.
	store.AddTransaction(models.Transaction{
		TransactionID:     "0000000000000001",
		OriginalTimestamp: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	store.AddTransaction(models.Transaction{
		TransactionID:     "0000000000000002",
		OriginalTimestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	tx, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer tx.Rollback()

	latest, err := tx.LatestTransactionID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest != "0000000000000002" {
		t.Errorf("latest id = %q, want the most recently created", latest)
	}
}
