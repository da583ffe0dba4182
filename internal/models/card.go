package models

import "time"

// Card references exactly one account. Many cards may share an account.
type Card struct {
	CardNumber     string    `json:"cardNumber" db:"card_number"`
	AccountID      int64     `json:"accountId" db:"account_id"`
	CustomerID     int64     `json:"customerId" db:"customer_id"`
	CVVCode        string    `json:"-" db:"cvv_code"`
	ExpirationDate time.Time `json:"expirationDate" db:"expiration_date"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}
