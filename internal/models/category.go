package models

import "time"

// TransactionCategory is reference data describing a (type, category) pair.
type TransactionCategory struct {
	TypeCode            string    `json:"typeCode" db:"type_code"`
	CategoryCode        int       `json:"categoryCode" db:"category_code"`
	CategoryDescription string    `json:"categoryDescription" db:"category_description"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}
