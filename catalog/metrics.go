package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for catalog traffic and aggregation.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec
	AggregateRuns     prometheus.Counter
	CategoryFailures  prometheus.Counter
	CategoriesFetched prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbase_catalog_requests_total",
			Help: "Total catalog requests by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookbase_catalog_request_duration_seconds",
			Help:    "Catalog request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookbase_catalog_errors_total",
			Help: "Total catalog errors by type.",
		},
		[]string{"error_type"},
	)
	aggregateRuns := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookbase_aggregate_runs_total",
			Help: "Total multi-category aggregation runs.",
		},
	)
	categoryFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookbase_aggregate_category_failures_total",
			Help: "Categories that fell back to an empty result.",
		},
	)
	categoriesFetched := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookbase_aggregate_categories_total",
			Help: "Categories fetched across all aggregation runs.",
		},
	)

	registry.MustRegister(requests, requestDuration, errorsTotal, aggregateRuns, categoryFailures, categoriesFetched)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		ErrorsTotal:       errorsTotal,
		AggregateRuns:     aggregateRuns,
		CategoryFailures:  categoryFailures,
		CategoriesFetched: categoriesFetched,
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(op).Observe(d.Seconds())
	if err == nil {
		m.RequestsTotal.WithLabelValues(op, "ok").Inc()
		return
	}
	errorType := ErrorType(err)
	m.RequestsTotal.WithLabelValues(op, errorType).Inc()
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncAggregate counts one aggregation run over n categories.
func (m *Metrics) IncAggregate(n int) {
	if m == nil {
		return
	}
	m.AggregateRuns.Inc()
	m.CategoriesFetched.Add(float64(n))
}

// IncCategoryFailure counts a category whose fetch was absorbed.
func (m *Metrics) IncCategoryFailure() {
	if m == nil {
		return
	}
	m.CategoryFailures.Inc()
}
