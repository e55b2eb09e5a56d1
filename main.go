package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	accountsapp "flatpay/internal/accounts/application"
	accountshttp "flatpay/internal/accounts/interfaces/http"
	"flatpay/internal/audit"
	"flatpay/internal/auth"
	billingapp "flatpay/internal/billing/application"
	billinginterfaces "flatpay/internal/billing/interfaces"
	billinghttp "flatpay/internal/billing/interfaces/http"
	"flatpay/internal/config"
	"flatpay/internal/ledger/infrastructure/sqlite"
	"flatpay/internal/observability/metrics"
	"flatpay/internal/scheduler"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	ctx := context.Background()

	ledgerRepo := sqlite.NewRepository(db)
	if err := ledgerRepo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("ledger schema error: %v", err)
	}
	auditRepo := audit.NewRepository(db)
	if err := auditRepo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("audit schema error: %v", err)
	}

	metrics.Init(ledgerRepo, logger)

	billingService, err := billingapp.NewService(ledgerRepo, billingapp.SystemClock{}, cfg.SubmitAfterDay, auditRepo, logger)
	if err != nil {
		logger.Fatalf("billing service error: %v", err)
	}
	registry, err := accountsapp.NewService(ledgerRepo, auditRepo, logger)
	if err != nil {
		logger.Fatalf("accounts service error: %v", err)
	}

	readingsHandler, err := billinghttp.NewReadingsHandler(billingService)
	if err != nil {
		logger.Fatalf("readings handler error: %v", err)
	}
	paymentsHandler, err := billinghttp.NewPaymentsHandler(billingService)
	if err != nil {
		logger.Fatalf("payments handler error: %v", err)
	}
	debtHandler, err := billinghttp.NewDebtHandler(billingService)
	if err != nil {
		logger.Fatalf("debt handler error: %v", err)
	}
	statementHandler, err := billinginterfaces.NewStatementExportHandler(ledgerRepo)
	if err != nil {
		logger.Fatalf("statement handler error: %v", err)
	}
	accountsHandler, err := accountshttp.NewAccountsHandler(registry)
	if err != nil {
		logger.Fatalf("accounts handler error: %v", err)
	}
	loginHandler, err := accountshttp.NewLoginHandler(registry, []byte(cfg.JWTSecret), cfg.SessionTTL)
	if err != nil {
		logger.Fatalf("login handler error: %v", err)
	}

	cycle := scheduler.New(logger)
	monthly := scheduler.Monthly(cfg.RolloverDay, cfg.RolloverHour)
	cycle.Register("rollover_debt", monthly, billingService.RolloverAllDebt)
	cycle.Register("reset_readings", monthly, billingService.ResetAllReadings)
	go cycle.Start(ctx)
	defer cycle.Stop()

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/accounts", accountsHandler)
	mux.Handle("/api/v1/login", loginHandler)
	mux.Handle("/api/v1/readings", readingsHandler)
	mux.Handle("/api/v1/payments", paymentsHandler)
	mux.Handle("/api/v1/debt", debtHandler)
	mux.Handle("/api/v1/statements/export", statementHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
