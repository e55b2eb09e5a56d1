package accountshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	accounts "flatpay/internal/accounts/application"
	"flatpay/internal/auth"
	ledger "flatpay/internal/ledger/domain"
)

type memoryAccountStore struct {
	hashes map[string]string
}

func newMemoryAccountStore() *memoryAccountStore {
	return &memoryAccountStore{hashes: make(map[string]string)}
}

func (s *memoryAccountStore) CreateAccount(_ context.Context, passport, passwordHash string) error {
	if _, ok := s.hashes[passport]; ok {
		return ledger.ErrAlreadyExists
	}
	s.hashes[passport] = passwordHash
	return nil
}

func (s *memoryAccountStore) DeleteAccount(_ context.Context, passport string) (bool, error) {
	if _, ok := s.hashes[passport]; !ok {
		return false, nil
	}
	delete(s.hashes, passport)
	return true, nil
}

func (s *memoryAccountStore) PasswordHash(_ context.Context, passport string) (string, error) {
	hash, ok := s.hashes[passport]
	if !ok {
		return "", ledger.ErrAccountNotFound
	}
	return hash, nil
}

func newRegistry(t *testing.T) *accounts.Service {
	t.Helper()
	registry, err := accounts.NewService(newMemoryAccountStore(), nil, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return registry
}

func TestAccountsHandlerRegister(t *testing.T) {
	registry := newRegistry(t)
	handler, err := NewAccountsHandler(registry)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := `{"passport": " 1234  567890 ", "password": "hunter2"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response["passport"] != "1234 567890" {
		t.Fatalf("expected canonical passport, got %q", response["passport"])
	}

	// Same passport again conflicts.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts", strings.NewReader(body)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAccountsHandlerRegisterInvalidPassport(t *testing.T) {
	handler, err := NewAccountsHandler(newRegistry(t))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts",
		strings.NewReader(`{"passport": "12a4 567890"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountsHandlerDeregister(t *testing.T) {
	registry := newRegistry(t)
	handler, err := NewAccountsHandler(registry)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	if _, err := registry.Register(context.Background(), "1234 567890", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/accounts?passport=1234+567890", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/accounts?passport=1234+567890", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestLoginHandler(t *testing.T) {
	registry := newRegistry(t)
	if _, err := registry.Register(context.Background(), "1234 567890", "hunter2"); err != nil {
		t.Fatalf("register: %v", err)
	}
	secret := []byte("test-secret")
	handler, err := NewLoginHandler(registry, secret, time.Hour)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/login",
		strings.NewReader(`{"passport": "1234 567890", "password": "hunter2"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	claims, err := auth.ParseJWT(response["token"], secret)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Subject != "1234 567890" || claims.Role != string(auth.RoleResident) {
		t.Fatalf("unexpected claims: subject=%q role=%q", claims.Subject, claims.Role)
	}
}

func TestLoginHandlerWrongPassword(t *testing.T) {
	registry := newRegistry(t)
	if _, err := registry.Register(context.Background(), "1234 567890", "hunter2"); err != nil {
		t.Fatalf("register: %v", err)
	}
	handler, err := NewLoginHandler(registry, []byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/login",
		strings.NewReader(`{"passport": "1234 567890", "password": "nope"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
