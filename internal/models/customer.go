package models

import "time"

type Customer struct {
	CustomerID      int64     `json:"customerId" db:"customer_id"`
	FirstName       string    `json:"firstName" db:"first_name"`
	MiddleName      string    `json:"middleName,omitempty" db:"middle_name"`
	LastName        string    `json:"lastName" db:"last_name"`
	SSN             string    `json:"-" db:"ssn"`
	AddressLine1    string    `json:"addressLine1" db:"address_line_1"`
	AddressLine2    string    `json:"addressLine2,omitempty" db:"address_line_2"`
	AddressLine3    string    `json:"addressLine3,omitempty" db:"address_line_3"`
	StateCode       string    `json:"stateCode" db:"state_code"`
	CountryCode     string    `json:"countryCode" db:"country_code"`
	ZipCode         string    `json:"zipCode" db:"zip_code"`
	FicoCreditScore int       `json:"ficoCreditScore" db:"fico_credit_score"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}
