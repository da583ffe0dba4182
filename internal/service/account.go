package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/abkawan/card-ledger/internal/models"
)

// AccountService exposes the read-only account, customer and category
// lookups. No business logic, no mutation.
type AccountService struct {
	store  Store
	logger *logrus.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(store Store, logger *logrus.Logger) *AccountService {
	return &AccountService{store: store, logger: logger}
}

// GetAccount retrieves an account by id.
func (s *AccountService) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	return s.store.GetAccount(ctx, accountID)
}

// ListAccounts returns all accounts.
func (s *AccountService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.store.ListAccounts(ctx)
}

// ListAccountsByCustomer returns the accounts owned by a customer.
func (s *AccountService) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]models.Account, error) {
	return s.store.ListAccountsByCustomer(ctx, customerID)
}

// GetCustomer retrieves a customer by id.
func (s *AccountService) GetCustomer(ctx context.Context, customerID int64) (*models.Customer, error) {
	return s.store.GetCustomer(ctx, customerID)
}

// ListCategories returns the transaction category reference data.
func (s *AccountService) ListCategories(ctx context.Context) ([]models.TransactionCategory, error) {
	return s.store.ListCategories(ctx)
}
