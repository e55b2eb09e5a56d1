package accountshttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	accounts "flatpay/internal/accounts/application"
	"flatpay/internal/auth"
	ledger "flatpay/internal/ledger/domain"
	"flatpay/internal/observability/metrics"
)

// AccountsHandler serves registration and deregistration.
type AccountsHandler struct {
	registry *accounts.Service
}

// NewAccountsHandler constructs an AccountsHandler.
func NewAccountsHandler(registry *accounts.Service) (*AccountsHandler, error) {
	if registry == nil {
		return nil, errors.New("accounts handler: nil registry")
	}
	return &AccountsHandler{registry: registry}, nil
}

// ServeHTTP handles POST and DELETE /api/v1/accounts.
func (h *AccountsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Passport string `json:"passport"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid registration payload", http.StatusBadRequest)
			metrics.ObserveHTTP("accounts", metrics.ResultError, time.Since(started))
			return
		}
		passport, err := h.registry.Register(r.Context(), payload.Passport, payload.Password)
		if err != nil {
			writeDomainError(w, err)
			metrics.ObserveHTTP("accounts", metrics.ResultError, time.Since(started))
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"passport": passport})
		metrics.ObserveHTTP("accounts", metrics.ResultSuccess, time.Since(started))

	case http.MethodDelete:
		passport := r.URL.Query().Get("passport")
		if passport == "" {
			http.Error(w, "passport is required", http.StatusBadRequest)
			metrics.ObserveHTTP("accounts", metrics.ResultError, time.Since(started))
			return
		}
		if err := h.registry.Deregister(r.Context(), passport); err != nil {
			writeDomainError(w, err)
			metrics.ObserveHTTP("accounts", metrics.ResultError, time.Since(started))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
		metrics.ObserveHTTP("accounts", metrics.ResultSuccess, time.Since(started))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// LoginHandler verifies credentials and issues session tokens.
type LoginHandler struct {
	registry *accounts.Service
	secret   []byte
	ttl      time.Duration
}

// NewLoginHandler constructs a LoginHandler.
func NewLoginHandler(registry *accounts.Service, secret []byte, ttl time.Duration) (*LoginHandler, error) {
	if registry == nil {
		return nil, errors.New("login handler: nil registry")
	}
	if len(secret) == 0 {
		return nil, errors.New("login handler: empty secret")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &LoginHandler{registry: registry, secret: secret, ttl: ttl}, nil
}

// ServeHTTP handles POST /api/v1/login.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()

	var payload struct {
		Passport string `json:"passport"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid login payload", http.StatusBadRequest)
		metrics.ObserveHTTP("login", metrics.ResultError, time.Since(started))
		return
	}

	passport, err := h.registry.Authenticate(r.Context(), payload.Passport, payload.Password)
	if err != nil {
		writeDomainError(w, err)
		metrics.ObserveHTTP("login", metrics.ResultError, time.Since(started))
		return
	}

	token, err := auth.NewToken(passport, auth.RoleResident, h.secret, h.ttl)
	if err != nil {
		http.Error(w, "token issue error", http.StatusInternalServerError)
		metrics.ObserveHTTP("login", metrics.ResultError, time.Since(started))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
	metrics.ObserveHTTP("login", metrics.ResultSuccess, time.Since(started))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotNumeric), errors.Is(err, ledger.ErrInvalidFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrAccountNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
