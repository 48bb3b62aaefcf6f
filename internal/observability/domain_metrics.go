package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeEmpty    = "empty"
	OutcomeValid    = "valid"
	OutcomeRejected = "rejected"
)

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_generations_total",
			Help: "Total number of SQL generation attempts by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	generationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlscribe_generation_latency_ms",
			Help:    "Language model completion latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		},
		[]string{"provider"},
	)
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_validations_total",
			Help: "Total number of dry-run validations by outcome.",
		},
		[]string{"outcome"},
	)
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_executions_total",
			Help: "Total number of executed queries by outcome.",
		},
		[]string{"outcome"},
	)
	executionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlscribe_execution_latency_ms",
			Help:    "Query execution latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		},
	)
	executionRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlscribe_execution_rows_total",
			Help: "Total number of rows returned by executed queries.",
		},
	)
	catalogTables = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqlscribe_catalog_tables",
			Help: "Number of tables in the most recently loaded schema catalog.",
		},
	)
	catalogRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlscribe_catalog_refresh_total",
			Help: "Total number of schema catalog refreshes by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		generationsTotal,
		generationLatencyMs,
		validationsTotal,
		executionsTotal,
		executionLatencyMs,
		executionRowsTotal,
		catalogTables,
		catalogRefreshTotal,
	)
}

func ObserveGeneration(provider, outcome string, elapsed time.Duration) {
	generationsTotal.WithLabelValues(provider, outcome).Inc()
	generationLatencyMs.WithLabelValues(provider).Observe(float64(elapsed.Milliseconds()))
}

func ObserveValidation(valid bool) {
	if valid {
		validationsTotal.WithLabelValues(OutcomeValid).Inc()
		return
	}
	validationsTotal.WithLabelValues(OutcomeRejected).Inc()
}

func ObserveExecution(rows int, elapsed time.Duration, err error) {
	if err != nil {
		executionsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	executionsTotal.WithLabelValues(OutcomeOK).Inc()
	executionLatencyMs.Observe(float64(elapsed.Milliseconds()))
	if rows > 0 {
		executionRowsTotal.Add(float64(rows))
	}
}

func ObserveCatalogRefresh(tables int, err error) {
	if err != nil {
		catalogRefreshTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	catalogRefreshTotal.WithLabelValues(OutcomeOK).Inc()
	catalogTables.Set(float64(tables))
}
