package service

import (
	"context"
	"time"

	"github.com/abkawan/card-ledger/internal/models"
)

// Store is the ledger persistence contract the services depend on. It owns
// no business rules. Implementations return the domain not-found errors
// from this package so callers can classify misses.
type Store interface {
	// Begin opens the transactional scope used by the posting workflow.
	Begin(ctx context.Context) (Tx, error)

	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListAccountsByCustomer(ctx context.Context, customerID int64) ([]models.Account, error)
	GetCustomer(ctx context.Context, customerID int64) (*models.Customer, error)
	GetCard(ctx context.Context, cardNumber string) (*models.Card, error)
	ListCategories(ctx context.Context) ([]models.TransactionCategory, error)

	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	// FindAll returns one page of transactions ordered by originalTimestamp
	// descending, plus the total row count.
	FindAll(ctx context.Context, page, size int) ([]models.Transaction, int64, error)
	FindByCardNumber(ctx context.Context, cardNumber string) ([]models.Transaction, error)
	FindByAccountID(ctx context.Context, accountID int64) ([]models.Transaction, error)
	// FindByDateRange returns transactions whose originalTimestamp falls in
	// [start, end] inclusive, ordered descending.
	FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Transaction, error)
}

// Tx is one posting unit of work. Row reads through a Tx see the latest
// committed values and hold their locks until Commit or Rollback, so
// concurrent posts against the same account serialize. Writes become
// visible all together at Commit or not at all.
type Tx interface {
	GetCard(ctx context.Context, cardNumber string) (*models.Card, error)
	// GetAccountForUpdate reads the account and locks it for the remainder
	// of the unit of work.
	GetAccountForUpdate(ctx context.Context, accountID int64) (*models.Account, error)
	// LatestTransactionID returns the id of the most recently created
	// transaction, or "" when none exists.
	LatestTransactionID(ctx context.Context) (string, error)
	// InsertTransaction persists a new transaction. A duplicate id returns
	// ErrTransactionIDConflict.
	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	UpdateAccount(ctx context.Context, account *models.Account) error
	// GetOrCreateCategoryBalance locks and returns the category balance for
	// the key, creating it with a zero balance when absent.
	GetOrCreateCategoryBalance(ctx context.Context, accountID int64, typeCode string, categoryCode int) (*models.CategoryBalance, error)
	SaveCategoryBalance(ctx context.Context, balance *models.CategoryBalance) error

	Commit() error
	Rollback() error
}
