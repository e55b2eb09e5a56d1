package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"flatpay/internal/auth"
	ledger "flatpay/internal/ledger/domain"
	"flatpay/internal/observability/metrics"
)

// AccountReader loads a full ledger row for the statement export.
type AccountReader interface {
	GetAccount(ctx context.Context, passport string) (*ledger.Account, error)
}

// StatementExportHandler serves per-account debt statements as PDF or XLSX.
type StatementExportHandler struct {
	accounts AccountReader
}

// NewStatementExportHandler constructs a StatementExportHandler.
func NewStatementExportHandler(accounts AccountReader) (*StatementExportHandler, error) {
	if accounts == nil {
		return nil, errors.New("statement export handler: nil account reader")
	}
	return &StatementExportHandler{accounts: accounts}, nil
}

// ServeHTTP handles GET /api/v1/statements/export?format=pdf|xlsx.
func (h *StatementExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()

	passport := auth.PassportFromContext(r.Context())
	if auth.RoleFromContext(r.Context()) == auth.RoleAdmin {
		if override := r.URL.Query().Get("passport"); override != "" {
			override, err := ledger.ValidateLookupPassport(override)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			passport = override
		}
	}
	if passport == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}

	account, err := h.accounts.GetAccount(r.Context(), passport)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
		} else {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		metrics.ObserveStatementExport(format, metrics.ResultError, time.Since(started))
		return
	}

	now := time.Now().UTC()
	var (
		body        []byte
		contentType string
		filename    string
	)
	switch format {
	case "pdf":
		body, err = BuildDebtStatementPDF(account, now)
		contentType = "application/pdf"
		filename = fmt.Sprintf("statement-%s.pdf", now.Format("2006-01"))
	case "xlsx":
		body, err = BuildDebtStatementXLSX(account, now)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = fmt.Sprintf("statement-%s.xlsx", now.Format("2006-01"))
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
		metrics.ObserveStatementExport(format, metrics.ResultError, time.Since(started))
		return
	}
	if err != nil {
		http.Error(w, "statement render error", http.StatusInternalServerError)
		metrics.ObserveStatementExport(format, metrics.ResultError, time.Since(started))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	metrics.ObserveStatementExport(format, metrics.ResultSuccess, time.Since(started))
}
