package metrics

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerStats exposes the ledger counts the gauges report.
type LedgerStats interface {
	CountAccounts(ctx context.Context) (int64, error)
	CountAccountsWithStagedDebt(ctx context.Context) (int64, error)
}

func registerLedgerGauges(stats LedgerStats, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "accounts_registered",
			Help: "Registered taxpayer accounts",
		},
		func() float64 {
			return gaugeCount(stats.CountAccounts, logger)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "accounts_with_staged_debt",
			Help: "Accounts with a nonzero next-period debt",
		},
		func() float64 {
			return gaugeCount(stats.CountAccountsWithStagedDebt, logger)
		},
	))
}

func gaugeCount(count func(context.Context) (int64, error), logger *log.Logger) float64 {
	value, err := count(context.Background())
	if err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if value < 0 {
		return 0
	}
	return float64(value)
}
