package ledger

import "strings"

// Passport format: a 4-digit series and a 6-digit number, separated by
// a single space in canonical form ("1234 567890").
const (
	passportSeriesLen = 4
	passportNumberLen = 6
)

// NormalizePassport collapses whitespace runs to single spaces and trims.
// Idempotent: normalizing an already-normalized passport is a no-op.
func NormalizePassport(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// IsNumeric reports whether every character group of a passport is all digits.
func IsNumeric(passport string) bool {
	groups := strings.Fields(passport)
	if len(groups) == 0 {
		return false
	}
	for _, group := range groups {
		for _, ch := range group {
			if ch < '0' || ch > '9' {
				return false
			}
		}
	}
	return true
}

// IsValidFormat reports whether a normalized passport is a 4-digit series
// followed by a 6-digit number.
func IsValidFormat(passport string) bool {
	groups := strings.Fields(passport)
	if len(groups) != 2 {
		return false
	}
	return len(groups[0]) == passportSeriesLen && len(groups[1]) == passportNumberLen
}

// ValidatePassport runs normalize, numeric and format checks in order and
// returns the canonical passport. Existence is checked by callers that
// hold a store handle. Used where accounts are created or removed; query
// paths use ValidateLookupPassport.
func ValidatePassport(raw string) (string, error) {
	passport := NormalizePassport(raw)
	if !IsNumeric(passport) {
		return "", ErrNotNumeric
	}
	if !IsValidFormat(passport) {
		return "", ErrInvalidFormat
	}
	return passport, nil
}

// ValidateLookupPassport normalizes and requires digits only. Queries
// resolve any other shape against the store, so an identity that never
// registered surfaces as not-found rather than a format error.
func ValidateLookupPassport(raw string) (string, error) {
	passport := NormalizePassport(raw)
	if !IsNumeric(passport) {
		return "", ErrNotNumeric
	}
	return passport, nil
}
