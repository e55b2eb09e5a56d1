package metrics

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "flatpay_"

	ResultSuccess = "success"
	ResultError   = "error"
)

// Scheduled job names used as metric labels.
const (
	JobRolloverDebt  = "rollover_debt"
	JobResetReadings = "reset_readings"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	readingsSubmitted prometheus.Counter
	paymentsApplied   prometheus.Counter
	registrations     prometheus.Counter

	rolloverRuns *prometheus.CounterVec

	statementExportTotal   *prometheus.CounterVec
	statementExportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and ledger-backed gauges.
func Init(stats LedgerStats, logger *log.Logger) {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by route and result",
			},
			[]string{"route", "result"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_latency_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		)

		readingsSubmitted = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_submitted_total",
				Help: "Total accepted meter reading submissions",
			},
		)
		paymentsApplied = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "payments_applied_total",
				Help: "Total applied payments",
			},
		)
		registrations = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "registrations_total",
				Help: "Total registered accounts since startup",
			},
		)

		rolloverRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycle_job_runs_total",
				Help: "Total monthly cycle job runs by job and result",
			},
			[]string{"job", "result"},
		)

		statementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total statement export operations by format and result",
			},
			[]string{"format", "result"},
		)
		statementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			readingsSubmitted,
			paymentsApplied,
			registrations,
			rolloverRuns,
			statementExportTotal,
			statementExportLatency,
		)

		if stats != nil {
			registerLedgerGauges(stats, logger)
		}
	})
}

// ObserveHTTP records one request by route and result.
func ObserveHTTP(route, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(route, result).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(route).Observe(duration.Seconds())
	}
}

// ObserveReadingsSubmitted increments the accepted submissions counter.
func ObserveReadingsSubmitted() {
	if readingsSubmitted != nil {
		readingsSubmitted.Inc()
	}
}

// ObservePayment increments the applied payments counter.
func ObservePayment() {
	if paymentsApplied != nil {
		paymentsApplied.Inc()
	}
}

// ObserveRegistration increments the registrations counter.
func ObserveRegistration() {
	if registrations != nil {
		registrations.Inc()
	}
}

// ObserveRollover records one monthly cycle job run.
func ObserveRollover(job string, ok bool) {
	if rolloverRuns == nil {
		return
	}
	result := ResultSuccess
	if !ok {
		result = ResultError
	}
	rolloverRuns.WithLabelValues(job, result).Inc()
}

// ObserveStatementExport records export latency and result.
func ObserveStatementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if statementExportTotal != nil {
		statementExportTotal.WithLabelValues(format, result).Inc()
	}
	if statementExportLatency != nil {
		statementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}
