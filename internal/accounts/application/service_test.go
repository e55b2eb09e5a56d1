package application

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"flatpay/internal/audit"
	ledger "flatpay/internal/ledger/domain"
)

type stubAccountStore struct {
	hashes map[string]string
}

func newStubAccountStore() *stubAccountStore {
	return &stubAccountStore{hashes: make(map[string]string)}
}

func (s *stubAccountStore) CreateAccount(_ context.Context, passport, passwordHash string) error {
	if _, ok := s.hashes[passport]; ok {
		return ledger.ErrAlreadyExists
	}
	s.hashes[passport] = passwordHash
	return nil
}

func (s *stubAccountStore) DeleteAccount(_ context.Context, passport string) (bool, error) {
	if _, ok := s.hashes[passport]; !ok {
		return false, nil
	}
	delete(s.hashes, passport)
	return true, nil
}

func (s *stubAccountStore) PasswordHash(_ context.Context, passport string) (string, error) {
	hash, ok := s.hashes[passport]
	if !ok {
		return "", ledger.ErrAccountNotFound
	}
	return hash, nil
}

type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Log(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func TestRegister(t *testing.T) {
	store := newStubAccountStore()
	auditor := &recordingAuditor{}
	service, err := NewService(store, auditor, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	passport, err := service.Register(context.Background(), "  1234  567890 ", "hunter2")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if passport != "1234 567890" {
		t.Fatalf("expected canonical passport, got %q", passport)
	}

	hash := store.hashes[passport]
	if hash == "" || hash == "hunter2" {
		t.Fatalf("password must be stored as a hash, got %q", hash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	if len(auditor.entries) != 1 || auditor.entries[0].Action != "account.register" {
		t.Fatalf("expected one register audit entry, got %+v", auditor.entries)
	}
}

func TestRegisterWithoutPassword(t *testing.T) {
	store := newStubAccountStore()
	service, err := NewService(store, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	passport, err := service.Register(context.Background(), "1234 567890", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if store.hashes[passport] != "" {
		t.Fatal("passwordless account must store no hash")
	}

	_, err = service.Authenticate(context.Background(), passport, "")
	if !errors.Is(err, ledger.ErrInvalidCredentials) {
		t.Fatalf("passwordless account must not log in, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	store := newStubAccountStore()
	service, err := NewService(store, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.Register(context.Background(), "1234 567890", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err = service.Register(context.Background(), "1234 567890", "")
	if !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRegisterInvalidPassport(t *testing.T) {
	store := newStubAccountStore()
	service, err := NewService(store, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cases := []struct {
		raw  string
		want error
	}{
		{"12a4 567890", ledger.ErrNotNumeric},
		{"12345 67890", ledger.ErrInvalidFormat},
		{"1234567890", ledger.ErrInvalidFormat},
	}
	for _, tc := range cases {
		_, err := service.Register(context.Background(), tc.raw, "")
		if !errors.Is(err, tc.want) {
			t.Errorf("register %q: expected %v, got %v", tc.raw, tc.want, err)
		}
	}
	if len(store.hashes) != 0 {
		t.Fatal("invalid passports must not create accounts")
	}
}

func TestDeregister(t *testing.T) {
	store := newStubAccountStore()
	auditor := &recordingAuditor{}
	service, err := NewService(store, auditor, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.Register(context.Background(), "1234 567890", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := service.Deregister(context.Background(), "1234 567890"); err != nil {
		t.Fatalf("deregister: %v", err)
	}

	err = service.Deregister(context.Background(), "1234 567890")
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if len(auditor.entries) != 2 || auditor.entries[1].Action != "account.deregister" {
		t.Fatalf("expected deregister audit entry, got %+v", auditor.entries)
	}
}

func TestAuthenticate(t *testing.T) {
	store := newStubAccountStore()
	service, err := NewService(store, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := service.Register(context.Background(), "1234 567890", "hunter2"); err != nil {
		t.Fatalf("register: %v", err)
	}

	passport, err := service.Authenticate(context.Background(), "1234 567890", "hunter2")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if passport != "1234 567890" {
		t.Fatalf("expected canonical passport, got %q", passport)
	}

	_, err = service.Authenticate(context.Background(), "1234 567890", "wrong")
	if !errors.Is(err, ledger.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = service.Authenticate(context.Background(), "0000 000000", "hunter2")
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
