package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"flatpay/internal/audit"
	ledger "flatpay/internal/ledger/domain"
	"flatpay/internal/observability/metrics"
)

// LedgerStore is the persistence capability the billing service needs.
type LedgerStore interface {
	AccountExists(ctx context.Context, passport string) (bool, error)
	GetReadings(ctx context.Context, passport string) (ledger.Readings, error)
	SetReadingsWithNextDebt(ctx context.Context, passport string, readings ledger.Readings, nextDebt decimal.Decimal) error
	GetCurrentDebt(ctx context.Context, passport string) (decimal.Decimal, error)
	ApplyPayment(ctx context.Context, passport string, paid, newDebt decimal.Decimal) error
	RolloverDebt(ctx context.Context) error
	ResetAllReadings(ctx context.Context) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// DefaultSubmitAfterDay is the last day of the month on which reading
// submissions are still rejected as early.
const DefaultSubmitAfterDay = 24

// Service orchestrates reading submissions, payments and debt queries
// over the account ledger.
type Service struct {
	store          LedgerStore
	clock          Clock
	submitAfterDay int
	auditor        audit.Logger
	logger         *log.Logger
}

// NewService constructs the billing service. submitAfterDay <= 0 falls
// back to DefaultSubmitAfterDay; the auditor may be nil.
func NewService(store LedgerStore, clock Clock, submitAfterDay int, auditor audit.Logger, logger *log.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("billing service: nil ledger store")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if submitAfterDay <= 0 {
		submitAfterDay = DefaultSubmitAfterDay
	}
	return &Service{
		store:          store,
		clock:          clock,
		submitAfterDay: submitAfterDay,
		auditor:        auditor,
		logger:         logger,
	}, nil
}

// validateIdentity runs the lookup pipeline: normalize, numeric check,
// existence check, failing with the first violation. The strict
// series/number format rule applies at registration; here any numeric
// identity that never registered resolves as not-found.
func (s *Service) validateIdentity(ctx context.Context, raw string) (string, error) {
	passport, err := ledger.ValidateLookupPassport(raw)
	if err != nil {
		return "", err
	}
	exists, err := s.store.AccountExists(ctx, passport)
	if err != nil {
		return "", fmt.Errorf("billing: existence check: %w", err)
	}
	if !exists {
		return "", ledger.ErrAccountNotFound
	}
	return passport, nil
}

// SubmitReadings overwrites an account's meter counters and stages the
// recomputed next-period debt. Submissions before the configured day of
// month are rejected without touching the store.
func (s *Service) SubmitReadings(ctx context.Context, rawPassport string, readings ledger.Readings) error {
	passport, err := s.validateIdentity(ctx, rawPassport)
	if err != nil {
		return err
	}
	if day := s.clock.Now().Day(); day <= s.submitAfterDay {
		s.logf("early readings submission: passport=%s day=%d", passport, day)
		return ledger.ErrEarlySubmission
	}
	if err := readings.Validate(); err != nil {
		return err
	}
	nextDebt := ledger.CalculateDebt(readings)
	if err := s.store.SetReadingsWithNextDebt(ctx, passport, readings, nextDebt); err != nil {
		return fmt.Errorf("billing: persist readings: %w", err)
	}
	metrics.ObserveReadingsSubmitted()
	s.logf("readings updated: passport=%s staged_debt=%s", passport, nextDebt)
	return nil
}

// ApplyPayment subtracts a payment from the current debt and records it
// as the last payment. The balance is floored at zero: overpaying does
// not create a credit. Returns the new balance.
func (s *Service) ApplyPayment(ctx context.Context, rawPassport, amount string) (decimal.Decimal, error) {
	passport, err := s.validateIdentity(ctx, rawPassport)
	if err != nil {
		return decimal.Zero, err
	}
	paid, err := decimal.NewFromString(amount)
	if err != nil || paid.IsNegative() {
		return decimal.Zero, ledger.ErrInvalidAmount
	}
	current, err := s.store.GetCurrentDebt(ctx, passport)
	if err != nil {
		return decimal.Zero, fmt.Errorf("billing: read current debt: %w", err)
	}
	newDebt := current.Sub(paid).Round(2)
	if newDebt.IsNegative() {
		newDebt = decimal.Zero
	}
	if err := s.store.ApplyPayment(ctx, passport, paid, newDebt); err != nil {
		return decimal.Zero, fmt.Errorf("billing: persist payment: %w", err)
	}
	metrics.ObservePayment()
	s.auditPayment(ctx, passport, paid, newDebt)
	s.logf("payment applied: passport=%s paid=%s balance=%s", passport, paid, newDebt)
	return newDebt, nil
}

func (s *Service) auditPayment(ctx context.Context, passport string, paid, balance decimal.Decimal) {
	if s.auditor == nil {
		return
	}
	metadata, _ := json.Marshal(map[string]string{
		"paid":    paid.StringFixed(2),
		"balance": balance.StringFixed(2),
	})
	entry := audit.Entry{
		Actor:        passport,
		Action:       "payment.applied",
		ResourceType: "payment",
		ResourceID:   passport,
		Metadata:     metadata,
	}
	if err := s.auditor.Log(ctx, entry); err != nil {
		s.logf("audit write failed: action=payment.applied err=%v", err)
	}
}

// GetCurrentDebt returns the payable balance for the active period.
func (s *Service) GetCurrentDebt(ctx context.Context, rawPassport string) (decimal.Decimal, error) {
	passport, err := s.validateIdentity(ctx, rawPassport)
	if err != nil {
		return decimal.Zero, err
	}
	debt, err := s.store.GetCurrentDebt(ctx, passport)
	if err != nil {
		return decimal.Zero, fmt.Errorf("billing: read current debt: %w", err)
	}
	return debt, nil
}

// GetReadings returns the stored meter counters. Lookup validation only;
// a missing row surfaces as ErrAccountNotFound from the store.
func (s *Service) GetReadings(ctx context.Context, rawPassport string) (ledger.Readings, error) {
	passport, err := ledger.ValidateLookupPassport(rawPassport)
	if err != nil {
		return ledger.Readings{}, err
	}
	return s.store.GetReadings(ctx, passport)
}

// RolloverAllDebt folds the staged next-period debt into the current
// debt and zeroes the staged column for every account. Both updates
// commit in one transaction; running it again folds zeroes and is a
// no-op.
func (s *Service) RolloverAllDebt(ctx context.Context) error {
	if err := s.store.RolloverDebt(ctx); err != nil {
		metrics.ObserveRollover(metrics.JobRolloverDebt, false)
		return fmt.Errorf("billing: debt rollover: %w", err)
	}
	metrics.ObserveRollover(metrics.JobRolloverDebt, true)
	s.logf("monthly debt rollover complete")
	return nil
}

// ResetAllReadings zeroes every account's meter counters.
func (s *Service) ResetAllReadings(ctx context.Context) error {
	if err := s.store.ResetAllReadings(ctx); err != nil {
		metrics.ObserveRollover(metrics.JobResetReadings, false)
		return fmt.Errorf("billing: readings reset: %w", err)
	}
	metrics.ObserveRollover(metrics.JobResetReadings, true)
	s.logf("monthly readings reset complete")
	return nil
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
