package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abkawan/card-ledger/internal/models"
	"github.com/abkawan/card-ledger/internal/service"
)

type categoryKey struct {
	accountID    int64
	typeCode     string
	categoryCode int
}

// Memory is an in-memory ledger store guarded by a single lock. Begin takes
// the write lock and holds it until Commit or Rollback, so posting units
// serialize; writes are staged on the unit and applied only at Commit.
// Used by tests and for running the service without a database.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[int64]models.Account
	cards        map[string]models.Card
	customers    map[int64]models.Customer
	categories   []models.TransactionCategory
	transactions []models.Transaction
	balances     map[categoryKey]models.CategoryBalance
	now          func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[int64]models.Account),
		cards:     make(map[string]models.Card),
		customers: make(map[int64]models.Customer),
		balances:  make(map[categoryKey]models.CategoryBalance),
		now:       time.Now,
	}
}

// WithClock overrides the store clock. Intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// AddAccount seeds an account.
func (m *Memory) AddAccount(account models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.AccountID] = account
}

// AddCard seeds a card.
func (m *Memory) AddCard(card models.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.CardNumber] = card
}

// AddCustomer seeds a customer.
func (m *Memory) AddCustomer(customer models.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[customer.CustomerID] = customer
}

// AddCategory seeds a transaction category.
func (m *Memory) AddCategory(category models.TransactionCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append(m.categories, category)
}

// AddTransaction seeds a transaction without touching any balances.
func (m *Memory) AddTransaction(txn models.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, txn)
}

// CategoryBalance returns the stored balance for a key, or nil.
func (m *Memory) CategoryBalance(accountID int64, typeCode string, categoryCode int) *models.CategoryBalance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.balances[categoryKey{accountID, typeCode, categoryCode}]; ok {
		balance := b
		return &balance
	}
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return nil, service.ErrAccountNotFound
	}
	return &account, nil
}

func (m *Memory) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].AccountID < accounts[j].AccountID })
	return accounts, nil
}

func (m *Memory) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]models.Account, 0)
	for _, a := range m.accounts {
		if a.CustomerID == customerID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].AccountID < accounts[j].AccountID })
	return accounts, nil
}

func (m *Memory) GetCustomer(ctx context.Context, customerID int64) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	customer, ok := m.customers[customerID]
	if !ok {
		return nil, service.ErrCustomerNotFound
	}
	return &customer, nil
}

func (m *Memory) GetCard(ctx context.Context, cardNumber string) (*models.Card, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	card, ok := m.cards[cardNumber]
	if !ok {
		return nil, service.ErrCardNotFound
	}
	return &card, nil
}

func (m *Memory) ListCategories(ctx context.Context) ([]models.TransactionCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	categories := make([]models.TransactionCategory, len(m.categories))
	copy(categories, m.categories)
	return categories, nil
}

func (m *Memory) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.transactions {
		if m.transactions[i].TransactionID == transactionID {
			txn := m.transactions[i]
			return &txn, nil
		}
	}
	return nil, service.ErrTransactionNotFound
}

func (m *Memory) FindAll(ctx context.Context, page, size int) ([]models.Transaction, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sorted := m.sortedByOriginalDesc()

	total := int64(len(sorted))
	offset := page * size
	if offset >= len(sorted) {
		return []models.Transaction{}, total, nil
	}
	end := offset + size
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], total, nil
}

func (m *Memory) FindByCardNumber(ctx context.Context, cardNumber string) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]models.Transaction, 0)
	for _, txn := range m.sortedByOriginalDesc() {
		if txn.CardNumber == cardNumber {
			matched = append(matched, txn)
		}
	}
	return matched, nil
}

func (m *Memory) FindByAccountID(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]models.Transaction, 0)
	for _, txn := range m.sortedByOriginalDesc() {
		if txn.AccountID == accountID {
			matched = append(matched, txn)
		}
	}
	return matched, nil
}

func (m *Memory) FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]models.Transaction, 0)
	for _, txn := range m.sortedByOriginalDesc() {
		if !txn.OriginalTimestamp.Before(start) && !txn.OriginalTimestamp.After(end) {
			matched = append(matched, txn)
		}
	}
	return matched, nil
}

// sortedByOriginalDesc returns a copy ordered by originalTimestamp
// descending. Callers must hold at least the read lock.
func (m *Memory) sortedByOriginalDesc() []models.Transaction {
	sorted := make([]models.Transaction, len(m.transactions))
	copy(sorted, m.transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OriginalTimestamp.After(sorted[j].OriginalTimestamp)
	})
	return sorted
}

// Begin takes the write lock for the duration of the posting unit.
func (m *Memory) Begin(ctx context.Context) (service.Tx, error) {
	m.mu.Lock()
	return &memoryTx{
		store:    m,
		balances: make(map[categoryKey]models.CategoryBalance),
	}, nil
}

type memoryTx struct {
	store    *Memory
	done     bool
	inserted *models.Transaction
	account  *models.Account
	balances map[categoryKey]models.CategoryBalance
}

func (t *memoryTx) GetCard(ctx context.Context, cardNumber string) (*models.Card, error) {
	card, ok := t.store.cards[cardNumber]
	if !ok {
		return nil, service.ErrCardNotFound
	}
	return &card, nil
}

func (t *memoryTx) GetAccountForUpdate(ctx context.Context, accountID int64) (*models.Account, error) {
	account, ok := t.store.accounts[accountID]
	if !ok {
		return nil, service.ErrAccountNotFound
	}
	return &account, nil
}

func (t *memoryTx) LatestTransactionID(ctx context.Context) (string, error) {
	if len(t.store.transactions) == 0 {
		return "", nil
	}
	return t.store.transactions[len(t.store.transactions)-1].TransactionID, nil
}

func (t *memoryTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	for i := range t.store.transactions {
		if t.store.transactions[i].TransactionID == txn.TransactionID {
			return service.ErrTransactionIDConflict
		}
	}
	staged := *txn
	t.inserted = &staged
	return nil
}

func (t *memoryTx) UpdateAccount(ctx context.Context, account *models.Account) error {
	staged := *account
	t.account = &staged
	return nil
}

func (t *memoryTx) GetOrCreateCategoryBalance(ctx context.Context, accountID int64, typeCode string, categoryCode int) (*models.CategoryBalance, error) {
	key := categoryKey{accountID, typeCode, categoryCode}
	if balance, ok := t.store.balances[key]; ok {
		return &balance, nil
	}
	return &models.CategoryBalance{
		AccountID:    accountID,
		TypeCode:     typeCode,
		CategoryCode: categoryCode,
	}, nil
}

func (t *memoryTx) SaveCategoryBalance(ctx context.Context, balance *models.CategoryBalance) error {
	key := categoryKey{balance.AccountID, balance.TypeCode, balance.CategoryCode}
	t.balances[key] = *balance
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.store.mu.Unlock()

	now := t.store.now()
	if t.inserted != nil {
		t.inserted.CreatedAt = now
		t.store.transactions = append(t.store.transactions, *t.inserted)
	}
	if t.account != nil {
		t.account.UpdatedAt = now
		t.store.accounts[t.account.AccountID] = *t.account
	}
	for key, balance := range t.balances {
		if existing, ok := t.store.balances[key]; ok {
			balance.CreatedAt = existing.CreatedAt
		} else {
			balance.CreatedAt = now
		}
		balance.UpdatedAt = now
		t.store.balances[key] = balance
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}
