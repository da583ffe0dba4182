package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a posted card transaction. Immutable once created.
type Transaction struct {
	TransactionID      string          `json:"transactionId" db:"transaction_id"`
	CardNumber         string          `json:"cardNumber" db:"card_number"`
	AccountID          int64           `json:"accountId" db:"account_id"`
	TypeCode           string          `json:"typeCode" db:"type_code"`
	CategoryCode       int             `json:"categoryCode" db:"category_code"`
	Source             string          `json:"source" db:"source"`
	Description        string          `json:"description" db:"description"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	MerchantID         string          `json:"merchantId" db:"merchant_id"`
	MerchantName       string          `json:"merchantName" db:"merchant_name"`
	MerchantCity       string          `json:"merchantCity" db:"merchant_city"`
	MerchantZip        string          `json:"merchantZip" db:"merchant_zip"`
	OriginalTimestamp  time.Time       `json:"originalTimestamp" db:"original_timestamp"`
	ProcessedTimestamp time.Time       `json:"processedTimestamp" db:"processed_timestamp"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
}

// CategoryBalance is the running total of amounts posted under one
// (account, type, category) combination. Created lazily on first use.
type CategoryBalance struct {
	AccountID    int64           `json:"accountId" db:"account_id"`
	TypeCode     string          `json:"typeCode" db:"type_code"`
	CategoryCode int             `json:"categoryCode" db:"category_code"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// PostTransactionRequest is the payload for POST /api/transactions.
// OriginalTimestamp is kept as a string so the posting workflow can
// validate the date portion itself.
type PostTransactionRequest struct {
	CardNumber        string          `json:"cardNumber"`
	TypeCode          string          `json:"typeCode"`
	CategoryCode      int             `json:"categoryCode"`
	Source            string          `json:"source"`
	Description       string          `json:"description"`
	Amount            decimal.Decimal `json:"amount"`
	MerchantID        string          `json:"merchantId"`
	MerchantName      string          `json:"merchantName"`
	MerchantCity      string          `json:"merchantCity"`
	MerchantZip       string          `json:"merchantZip"`
	OriginalTimestamp string          `json:"originalTimestamp"`
	Confirmation      string          `json:"confirmation"`
}

// TransactionListItem is the trimmed row returned by the paginated list.
type TransactionListItem struct {
	TransactionID   string          `json:"transactionId"`
	TransactionDate time.Time       `json:"transactionDate"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
}

// TransactionPage is one page of transactions plus paging metadata.
type TransactionPage struct {
	Content    []TransactionListItem
	Page       int
	TotalPages int
	TotalItems int64
}
