// Package metrics holds the Prometheus collectors of the API and the worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spendwise/internal/log"
)

const namespace = "spendwise"

// Outcome labels of rule engine operations.
const (
	OutcomeOK = "ok"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	ruleOutcomes    *prometheus.CounterVec
	budgetOverLimit prometheus.Counter
	eventsConsumed  *prometheus.CounterVec
	sheetsExports   *prometheus.CounterVec
	rateLimited     prometheus.Counter
	suspicious      prometheus.Counter
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ruleOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_operations_total",
				Help:      "Rule engine operations by aggregate, operation and outcome",
			},
			[]string{"aggregate", "operation", "outcome"},
		),
		budgetOverLimit: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_over_limit_total",
			Help:      "Budgets found over their limit after an expense change",
		}),
		eventsConsumed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "expense_events_consumed_total",
				Help:      "Expense change events handled by the worker",
			},
			[]string{"kind", "result"},
		),
		sheetsExports: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sheets_exports_total",
				Help:      "Expense rows exported to Google Sheets",
			},
			[]string{"result"},
		),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the per-client rate limiter",
		}),
		suspicious: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspicious_requests_total",
			Help:      "Requests matching a known attack pattern",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveRule counts one rule engine call. The outcome is "ok" or the
// error type of err.
func (m *Metrics) ObserveRule(aggregate, operation string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = log.ErrorType(err)
	}
	m.ruleOutcomes.WithLabelValues(aggregate, operation, outcome).Inc()
}

func (m *Metrics) BudgetOverLimit() {
	m.budgetOverLimit.Inc()
}

func (m *Metrics) EventConsumed(kind string, err error) {
	result := OutcomeOK
	if err != nil {
		result = "error"
	}
	m.eventsConsumed.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) SheetsExport(err error) {
	result := OutcomeOK
	if err != nil {
		result = "error"
	}
	m.sheetsExports.WithLabelValues(result).Inc()
}

func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) SuspiciousRequest() {
	m.suspicious.Inc()
}
