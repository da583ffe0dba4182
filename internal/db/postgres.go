package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/abkawan/card-ledger/internal/models"
	"github.com/abkawan/card-ledger/internal/service"
)

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// Postgres is the production ledger store. All posting writes run in a
// single database transaction with the account row locked FOR UPDATE.
type Postgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres connects to Postgres and verifies the connection.
func NewPostgres(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Postgres{db: db, now: time.Now}, nil
}

// WithClock overrides the clock used for created_at/updated_at stamps.
func (p *Postgres) WithClock(now func() time.Time) *Postgres {
	p.now = now
	return p
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// InitSchema creates the ledger tables and seeds the category reference
// data. Safe to run on every startup.
func (p *Postgres) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			customer_id BIGINT PRIMARY KEY,
			first_name VARCHAR(25) NOT NULL,
			middle_name VARCHAR(25),
			last_name VARCHAR(25) NOT NULL,
			ssn VARCHAR(11) NOT NULL,
			address_line_1 VARCHAR(50) NOT NULL,
			address_line_2 VARCHAR(50),
			address_line_3 VARCHAR(50),
			state_code VARCHAR(2) NOT NULL,
			country_code VARCHAR(3) NOT NULL,
			zip_code VARCHAR(10) NOT NULL,
			fico_credit_score INT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			account_id BIGINT PRIMARY KEY,
			customer_id BIGINT NOT NULL,
			active_status VARCHAR(1) NOT NULL,
			current_balance DECIMAL(19, 2) NOT NULL,
			credit_limit DECIMAL(19, 2) NOT NULL,
			cash_credit_limit DECIMAL(19, 2) NOT NULL,
			open_date DATE NOT NULL,
			expiration_date DATE NOT NULL,
			current_cycle_credit DECIMAL(19, 2) NOT NULL,
			current_cycle_debit DECIMAL(19, 2) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			card_number VARCHAR(16) PRIMARY KEY,
			account_id BIGINT NOT NULL,
			customer_id BIGINT NOT NULL,
			cvv_code VARCHAR(3) NOT NULL,
			expiration_date DATE NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			transaction_id VARCHAR(16) PRIMARY KEY,
			card_number VARCHAR(16) NOT NULL,
			account_id BIGINT NOT NULL,
			type_code VARCHAR(2) NOT NULL,
			category_code INT NOT NULL,
			source VARCHAR(10) NOT NULL,
			description VARCHAR(100) NOT NULL,
			amount DECIMAL(19, 2) NOT NULL,
			merchant_id VARCHAR(15) NOT NULL,
			merchant_name VARCHAR(50) NOT NULL,
			merchant_city VARCHAR(50) NOT NULL,
			merchant_zip VARCHAR(10) NOT NULL,
			original_timestamp TIMESTAMP NOT NULL,
			processed_timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_original_timestamp
			ON transactions (original_timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_card_number
			ON transactions (card_number)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_id
			ON transactions (account_id)`,
		`CREATE TABLE IF NOT EXISTS category_balances (
			account_id BIGINT NOT NULL,
			type_code VARCHAR(2) NOT NULL,
			category_code INT NOT NULL,
			balance DECIMAL(19, 2) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (account_id, type_code, category_code)
		)`,
		`CREATE TABLE IF NOT EXISTS transaction_categories (
			type_code VARCHAR(2) NOT NULL,
			category_code INT NOT NULL,
			category_description VARCHAR(50) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (type_code, category_code)
		)`,
	}

	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return p.seedCategories(ctx)
}

func (p *Postgres) seedCategories(ctx context.Context) error {
	seed := []models.TransactionCategory{
		{TypeCode: "01", CategoryCode: 1, CategoryDescription: "Regular Sales Draft"},
		{TypeCode: "01", CategoryCode: 2, CategoryDescription: "Cash Advance"},
		{TypeCode: "02", CategoryCode: 1, CategoryDescription: "Payment"},
		{TypeCode: "02", CategoryCode: 2, CategoryDescription: "Credit Adjustment"},
		{TypeCode: "03", CategoryCode: 1, CategoryDescription: "Interest Charge"},
		{TypeCode: "03", CategoryCode: 2, CategoryDescription: "Fee"},
	}

	now := p.now()
	for _, c := range seed {
		_, err := p.db.ExecContext(ctx, `
			INSERT INTO transaction_categories (type_code, category_code, category_description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (type_code, category_code) DO NOTHING`,
			c.TypeCode, c.CategoryCode, c.CategoryDescription, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to seed transaction categories: %w", err)
		}
	}
	return nil
}

const accountColumns = `account_id, customer_id, active_status, current_balance, credit_limit,
	cash_credit_limit, open_date, expiration_date, current_cycle_credit, current_cycle_debit,
	created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.AccountID, &a.CustomerID, &a.ActiveStatus, &a.CurrentBalance, &a.CreditLimit,
		&a.CashCreditLimit, &a.OpenDate, &a.ExpirationDate, &a.CurrentCycleCredit,
		&a.CurrentCycleDebit, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (p *Postgres) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_id = $1`, accountID)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (p *Postgres) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return p.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY account_id`)
}

func (p *Postgres) ListAccountsByCustomer(ctx context.Context, customerID int64) ([]models.Account, error) {
	return p.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1 ORDER BY account_id`, customerID)
}

func (p *Postgres) queryAccounts(ctx context.Context, query string, args ...interface{}) ([]models.Account, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func (p *Postgres) GetCustomer(ctx context.Context, customerID int64) (*models.Customer, error) {
	var c models.Customer
	var middle, line2, line3 sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT customer_id, first_name, middle_name, last_name, ssn, address_line_1,
			address_line_2, address_line_3, state_code, country_code, zip_code,
			fico_credit_score, created_at, updated_at
		FROM customers WHERE customer_id = $1`, customerID,
	).Scan(
		&c.CustomerID, &c.FirstName, &middle, &c.LastName, &c.SSN, &c.AddressLine1,
		&line2, &line3, &c.StateCode, &c.CountryCode, &c.ZipCode,
		&c.FicoCreditScore, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	c.MiddleName = middle.String
	c.AddressLine2 = line2.String
	c.AddressLine3 = line3.String
	return &c, nil
}

func (p *Postgres) GetCard(ctx context.Context, cardNumber string) (*models.Card, error) {
	card, err := getCard(ctx, p.db, cardNumber)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getCard(ctx context.Context, q querier, cardNumber string) (*models.Card, error) {
	var c models.Card
	err := q.QueryRowContext(ctx, `
		SELECT card_number, account_id, customer_id, cvv_code, expiration_date, created_at, updated_at
		FROM cards WHERE card_number = $1`, cardNumber,
	).Scan(&c.CardNumber, &c.AccountID, &c.CustomerID, &c.CVVCode, &c.ExpirationDate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return &c, nil
}

func (p *Postgres) ListCategories(ctx context.Context) ([]models.TransactionCategory, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT type_code, category_code, category_description, created_at, updated_at
		FROM transaction_categories ORDER BY type_code, category_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.TransactionCategory, 0)
	for rows.Next() {
		var c models.TransactionCategory
		if err := rows.Scan(&c.TypeCode, &c.CategoryCode, &c.CategoryDescription, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const transactionColumns = `transaction_id, card_number, account_id, type_code, category_code,
	source, description, amount, merchant_id, merchant_name, merchant_city, merchant_zip,
	original_timestamp, processed_timestamp, created_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.TransactionID, &t.CardNumber, &t.AccountID, &t.TypeCode, &t.CategoryCode,
		&t.Source, &t.Description, &t.Amount, &t.MerchantID, &t.MerchantName,
		&t.MerchantCity, &t.MerchantZip, &t.OriginalTimestamp, &t.ProcessedTimestamp, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *Postgres) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1`, transactionID)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func (p *Postgres) FindAll(ctx context.Context, page, size int) ([]models.Transaction, int64, error) {
	var total int64
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	txns, err := p.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		ORDER BY original_timestamp DESC LIMIT $1 OFFSET $2`, size, page*size)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (p *Postgres) FindByCardNumber(ctx context.Context, cardNumber string) ([]models.Transaction, error) {
	return p.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE card_number = $1 ORDER BY original_timestamp DESC`, cardNumber)
}

func (p *Postgres) FindByAccountID(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	return p.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = $1 ORDER BY original_timestamp DESC`, accountID)
}

func (p *Postgres) FindByDateRange(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	return p.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE original_timestamp >= $1 AND original_timestamp <= $2
		ORDER BY original_timestamp DESC`, start, end)
}

func (p *Postgres) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]models.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// Begin opens the posting unit of work.
func (p *Postgres) Begin(ctx context.Context) (service.Tx, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTx{tx: tx, now: p.now}, nil
}

type postgresTx struct {
	tx  *sql.Tx
	now func() time.Time
}

func (t *postgresTx) GetCard(ctx context.Context, cardNumber string) (*models.Card, error) {
	return getCard(ctx, t.tx, cardNumber)
}

// GetAccountForUpdate locks the account row for the rest of the unit so
// concurrent posts against the same account serialize.
func (t *postgresTx) GetAccountForUpdate(ctx context.Context, accountID int64) (*models.Account, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_id = $1 FOR UPDATE`, accountID)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, service.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account for update: %w", err)
	}
	return account, nil
}

func (t *postgresTx) LatestTransactionID(ctx context.Context) (string, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `
		SELECT transaction_id FROM transactions
		ORDER BY created_at DESC, transaction_id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest transaction id: %w", err)
	}
	return id, nil
}

func (t *postgresTx) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	txn.CreatedAt = t.now()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		txn.TransactionID, txn.CardNumber, txn.AccountID, txn.TypeCode, txn.CategoryCode,
		txn.Source, txn.Description, txn.Amount, txn.MerchantID, txn.MerchantName,
		txn.MerchantCity, txn.MerchantZip, txn.OriginalTimestamp, txn.ProcessedTimestamp, txn.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return service.ErrTransactionIDConflict
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateAccount(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = t.now()
	_, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET current_balance = $1, current_cycle_credit = $2, current_cycle_debit = $3, updated_at = $4
		WHERE account_id = $5`,
		account.CurrentBalance, account.CurrentCycleCredit, account.CurrentCycleDebit,
		account.UpdatedAt, account.AccountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// GetOrCreateCategoryBalance inserts a zero-balance row when absent, then
// locks and returns the row.
func (t *postgresTx) GetOrCreateCategoryBalance(ctx context.Context, accountID int64, typeCode string, categoryCode int) (*models.CategoryBalance, error) {
	now := t.now()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO category_balances (account_id, type_code, category_code, balance, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		ON CONFLICT (account_id, type_code, category_code) DO NOTHING`,
		accountID, typeCode, categoryCode, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category balance: %w", err)
	}

	var b models.CategoryBalance
	err = t.tx.QueryRowContext(ctx, `
		SELECT account_id, type_code, category_code, balance, created_at, updated_at
		FROM category_balances
		WHERE account_id = $1 AND type_code = $2 AND category_code = $3
		FOR UPDATE`,
		accountID, typeCode, categoryCode,
	).Scan(&b.AccountID, &b.TypeCode, &b.CategoryCode, &b.Balance, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get category balance: %w", err)
	}
	return &b, nil
}

func (t *postgresTx) SaveCategoryBalance(ctx context.Context, balance *models.CategoryBalance) error {
	balance.UpdatedAt = t.now()
	_, err := t.tx.ExecContext(ctx, `
		UPDATE category_balances SET balance = $1, updated_at = $2
		WHERE account_id = $3 AND type_code = $4 AND category_code = $5`,
		balance.Balance, balance.UpdatedAt, balance.AccountID, balance.TypeCode, balance.CategoryCode,
	)
	if err != nil {
		return fmt.Errorf("failed to save category balance: %w", err)
	}
	return nil
}

func (t *postgresTx) Commit() error {
	return t.tx.Commit()
}

func (t *postgresTx) Rollback() error {
	return t.tx.Rollback()
}
