package application

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"flatpay/internal/audit"
	ledger "flatpay/internal/ledger/domain"
	"flatpay/internal/observability/metrics"
)

// AccountStore is the persistence capability the registry needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, passport, passwordHash string) error
	DeleteAccount(ctx context.Context, passport string) (bool, error)
	PasswordHash(ctx context.Context, passport string) (string, error)
}

// Service registers and removes taxpayer accounts and verifies portal
// credentials. It shares the ledger store with the billing service but
// owns none of the billing logic.
type Service struct {
	store   AccountStore
	auditor audit.Logger
	logger  *log.Logger
}

// NewService constructs the registry. The auditor may be nil.
func NewService(store AccountStore, auditor audit.Logger, logger *log.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("accounts service: nil store")
	}
	return &Service{store: store, auditor: auditor, logger: logger}, nil
}

// Register validates the passport format and creates the account with
// zeroed readings and debts. A non-empty password attaches a portal
// credential; uniqueness violations surface as ErrAlreadyExists.
// Returns the canonical passport.
func (s *Service) Register(ctx context.Context, rawPassport, password string) (string, error) {
	passport, err := ledger.ValidatePassport(rawPassport)
	if err != nil {
		return "", err
	}
	var passwordHash string
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("accounts: hash credential: %w", err)
		}
		passwordHash = string(hash)
	}
	if err := s.store.CreateAccount(ctx, passport, passwordHash); err != nil {
		if errors.Is(err, ledger.ErrAlreadyExists) {
			return "", ledger.ErrAlreadyExists
		}
		return "", fmt.Errorf("accounts: create account: %w", err)
	}
	metrics.ObserveRegistration()
	s.audit(ctx, passport, "account.register")
	s.logf("account registered: passport=%s", passport)
	return passport, nil
}

// Deregister deletes the account. Deleting an absent passport returns
// ErrAccountNotFound without further error.
func (s *Service) Deregister(ctx context.Context, rawPassport string) error {
	passport, err := ledger.ValidatePassport(rawPassport)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteAccount(ctx, passport)
	if err != nil {
		return fmt.Errorf("accounts: delete account: %w", err)
	}
	if !deleted {
		return ledger.ErrAccountNotFound
	}
	s.audit(ctx, passport, "account.deregister")
	s.logf("account removed: passport=%s", passport)
	return nil
}

// Authenticate verifies a portal credential. Accounts registered without
// a password cannot log in.
func (s *Service) Authenticate(ctx context.Context, rawPassport, password string) (string, error) {
	passport, err := ledger.ValidatePassport(rawPassport)
	if err != nil {
		return "", err
	}
	hash, err := s.store.PasswordHash(ctx, passport)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return "", ledger.ErrAccountNotFound
		}
		return "", fmt.Errorf("accounts: read credential: %w", err)
	}
	if hash == "" {
		return "", ledger.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ledger.ErrInvalidCredentials
	}
	return passport, nil
}

func (s *Service) audit(ctx context.Context, passport, action string) {
	if s.auditor == nil {
		return
	}
	entry := audit.Entry{
		Actor:        passport,
		Action:       action,
		ResourceType: "account",
		ResourceID:   passport,
	}
	if err := s.auditor.Log(ctx, entry); err != nil {
		s.logf("audit write failed: action=%s err=%v", action, err)
	}
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
