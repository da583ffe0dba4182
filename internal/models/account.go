package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a credit account owned by a customer. Balances carry two
// fractional digits and are always handled as exact decimals.
type Account struct {
	AccountID          int64           `json:"accountId" db:"account_id"`
	CustomerID         int64           `json:"customerId" db:"customer_id"`
	ActiveStatus       string          `json:"activeStatus" db:"active_status"`
	CurrentBalance     decimal.Decimal `json:"currentBalance" db:"current_balance"`
	CreditLimit        decimal.Decimal `json:"creditLimit" db:"credit_limit"`
	CashCreditLimit    decimal.Decimal `json:"cashCreditLimit" db:"cash_credit_limit"`
	OpenDate           time.Time       `json:"openDate" db:"open_date"`
	ExpirationDate     time.Time       `json:"expirationDate" db:"expiration_date"`
	CurrentCycleCredit decimal.Decimal `json:"currentCycleCredit" db:"current_cycle_credit"`
	CurrentCycleDebit  decimal.Decimal `json:"currentCycleDebit" db:"current_cycle_debit"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time       `json:"updatedAt" db:"updated_at"`
}
