package service

import "errors"

// Domain errors. Handlers map these to HTTP statuses: the not-found group
// to 404, the validation group to 400, the id conflict to 409. Anything
// else is treated as an unexpected store failure.
var (
	// ErrCardNotFound means no card exists with the given number.
	ErrCardNotFound = errors.New("card number NOT found")

	// ErrAccountNotFound means no account exists with the given id. When
	// reached through a card lookup this is a data-integrity condition:
	// a card must always reference a valid account.
	ErrAccountNotFound = errors.New("account NOT found")

	// ErrCustomerNotFound means no customer exists with the given id.
	ErrCustomerNotFound = errors.New("customer NOT found")

	// ErrTransactionNotFound means no transaction exists with the given id.
	ErrTransactionNotFound = errors.New("transaction NOT found")

	// ErrConfirmationRequired means the caller did not confirm the operation.
	ErrConfirmationRequired = errors.New("confirmation required, pass Y to proceed")

	// ErrInvalidDate means a supplied date failed yyyy-MM-dd validation.
	ErrInvalidDate = errors.New("invalid date format, expected yyyy-MM-dd")

	// ErrAccountExpired means the transaction date falls after the
	// account's expiration date.
	ErrAccountExpired = errors.New("transaction received after account expiration")

	// ErrOverLimit means the projected cycle balance exceeds the credit limit.
	ErrOverLimit = errors.New("overlimit transaction")

	// ErrMissingDateRange means a custom report omitted its start or end date.
	ErrMissingDateRange = errors.New("start date and end date are required for custom reports")

	// ErrInvalidRange means the report start date falls after the end date.
	ErrInvalidRange = errors.New("start date must be before or equal to end date")

	// ErrInvalidReportType means the report type is not MONTHLY, YEARLY or CUSTOM.
	ErrInvalidReportType = errors.New("invalid report type, valid values are MONTHLY, YEARLY or CUSTOM")

	// ErrTransactionIDConflict means two posts raced to the same transaction
	// id and this one lost. The caller may retry.
	ErrTransactionIDConflict = errors.New("transaction id already assigned, retry the post")
)

// IsNotFound reports whether err is one of the not-found domain errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCardNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsValidation reports whether err is one of the validation domain errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrConfirmationRequired) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrAccountExpired) ||
		errors.Is(err, ErrOverLimit) ||
		errors.Is(err, ErrMissingDateRange) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidReportType)
}
