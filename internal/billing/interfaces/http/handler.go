package billinghttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"flatpay/internal/auth"
	billing "flatpay/internal/billing/application"
	ledger "flatpay/internal/ledger/domain"
	"flatpay/internal/observability/metrics"
)

// readingsPayload is the wire form of a meter submission. Pointers keep
// "absent" distinct from zero: genuinely missing fields default to zero,
// non-numeric values fail JSON decoding before the service runs.
type readingsPayload struct {
	Electricity *int64 `json:"electricity"`
	ColdWater   *int64 `json:"cold_water"`
	HotWater    *int64 `json:"hot_water"`
	Gas         *int64 `json:"gas"`
}

func (p readingsPayload) toReadings() ledger.Readings {
	var r ledger.Readings
	if p.Electricity != nil {
		r.Electricity = *p.Electricity
	}
	if p.ColdWater != nil {
		r.ColdWater = *p.ColdWater
	}
	if p.HotWater != nil {
		r.HotWater = *p.HotWater
	}
	if p.Gas != nil {
		r.Gas = *p.Gas
	}
	return r
}

// ReadingsHandler serves meter reading submissions and queries.
type ReadingsHandler struct {
	service *billing.Service
}

// NewReadingsHandler constructs a ReadingsHandler.
func NewReadingsHandler(service *billing.Service) (*ReadingsHandler, error) {
	if service == nil {
		return nil, errors.New("readings handler: nil billing service")
	}
	return &ReadingsHandler{service: service}, nil
}

// ServeHTTP handles GET and POST /api/v1/readings.
func (h *ReadingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	passport, ok := subjectPassport(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		metrics.ObserveHTTP("readings", metrics.ResultError, time.Since(started))
		return
	}

	switch r.Method {
	case http.MethodGet:
		readings, err := h.service.GetReadings(r.Context(), passport)
		if err != nil {
			writeDomainError(w, err)
			metrics.ObserveHTTP("readings", metrics.ResultError, time.Since(started))
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{
			"electricity": readings.Electricity,
			"cold_water":  readings.ColdWater,
			"hot_water":   readings.HotWater,
			"gas":         readings.Gas,
		})
		metrics.ObserveHTTP("readings", metrics.ResultSuccess, time.Since(started))

	case http.MethodPost:
		var payload readingsPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid readings payload", http.StatusBadRequest)
			metrics.ObserveHTTP("readings", metrics.ResultError, time.Since(started))
			return
		}
		if err := h.service.SubmitReadings(r.Context(), passport, payload.toReadings()); err != nil {
			writeDomainError(w, err)
			metrics.ObserveHTTP("readings", metrics.ResultError, time.Since(started))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
		metrics.ObserveHTTP("readings", metrics.ResultSuccess, time.Since(started))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// PaymentsHandler applies payments against the current debt.
type PaymentsHandler struct {
	service *billing.Service
}

// NewPaymentsHandler constructs a PaymentsHandler.
func NewPaymentsHandler(service *billing.Service) (*PaymentsHandler, error) {
	if service == nil {
		return nil, errors.New("payments handler: nil billing service")
	}
	return &PaymentsHandler{service: service}, nil
}

// ServeHTTP handles POST /api/v1/payments.
func (h *PaymentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()
	passport, ok := subjectPassport(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		metrics.ObserveHTTP("payments", metrics.ResultError, time.Since(started))
		return
	}

	var payload struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payment payload", http.StatusBadRequest)
		metrics.ObserveHTTP("payments", metrics.ResultError, time.Since(started))
		return
	}

	balance, err := h.service.ApplyPayment(r.Context(), passport, payload.Amount)
	if err != nil {
		writeDomainError(w, err)
		metrics.ObserveHTTP("payments", metrics.ResultError, time.Since(started))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"paid":    payload.Amount,
		"balance": balance.StringFixed(2),
	})
	metrics.ObserveHTTP("payments", metrics.ResultSuccess, time.Since(started))
}

// DebtHandler serves current debt queries.
type DebtHandler struct {
	service *billing.Service
}

// NewDebtHandler constructs a DebtHandler.
func NewDebtHandler(service *billing.Service) (*DebtHandler, error) {
	if service == nil {
		return nil, errors.New("debt handler: nil billing service")
	}
	return &DebtHandler{service: service}, nil
}

// ServeHTTP handles GET /api/v1/debt.
func (h *DebtHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()
	passport, ok := subjectPassport(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		metrics.ObserveHTTP("debt", metrics.ResultError, time.Since(started))
		return
	}

	debt, err := h.service.GetCurrentDebt(r.Context(), passport)
	if err != nil {
		writeDomainError(w, err)
		metrics.ObserveHTTP("debt", metrics.ResultError, time.Since(started))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"current_debt": debt.StringFixed(2)})
	metrics.ObserveHTTP("debt", metrics.ResultSuccess, time.Since(started))
}

// subjectPassport resolves the passport a request acts on: the
// authenticated subject, or the passport query parameter for admins.
func subjectPassport(r *http.Request) (string, bool) {
	passport := auth.PassportFromContext(r.Context())
	if auth.RoleFromContext(r.Context()) == auth.RoleAdmin {
		if override := r.URL.Query().Get("passport"); override != "" {
			passport = override
		}
	}
	return passport, passport != ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotNumeric),
		errors.Is(err, ledger.ErrInvalidFormat),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrNegativeReading):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrAccountNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrEarlySubmission):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ledger.ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, context.Canceled):
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
