package ledger

import "errors"

var (
	// ErrNotNumeric is returned when a passport contains non-digit characters.
	ErrNotNumeric = errors.New("ledger: passport is not numeric")
	// ErrInvalidFormat is returned when a passport fails the series/number rule.
	ErrInvalidFormat = errors.New("ledger: invalid passport format")
	// ErrAccountNotFound is returned when no account matches a passport.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAlreadyExists is returned when registering a passport that is taken.
	ErrAlreadyExists = errors.New("ledger: account already exists")
	// ErrInvalidAmount is returned when a payment amount does not parse as a non-negative number.
	ErrInvalidAmount = errors.New("ledger: invalid payment amount")
	// ErrEarlySubmission is returned when readings arrive before the submission window opens.
	ErrEarlySubmission = errors.New("ledger: readings submitted before the allowed day")
	// ErrNegativeReading is returned when a meter counter is negative.
	ErrNegativeReading = errors.New("ledger: negative meter reading")
	// ErrInvalidCredentials is returned when login verification fails.
	ErrInvalidCredentials = errors.New("ledger: invalid credentials")
)
