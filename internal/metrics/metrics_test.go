package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/core"
)

func TestObserveRule(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRule("expense", "create", nil)
	m.ObserveRule("expense", "create", core.Invalid("amount", 0, "must be greater than zero"))
	m.ObserveRule("expense", "create", core.Invalid("user_id", 9, "user does not exist"))
	m.ObserveRule("category", "delete", core.Conflict(core.EntityCategory, "in use"))
	m.ObserveRule("budget", "read", errors.New("connection reset"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ruleOutcomes.WithLabelValues("expense", "create", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ruleOutcomes.WithLabelValues("expense", "create", "validation_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ruleOutcomes.WithLabelValues("category", "delete", "conflict_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ruleOutcomes.WithLabelValues("budget", "read", "internal_error")))
}

func TestBudgetOverLimitCounter(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.BudgetOverLimit()
	m.BudgetOverLimit()

	expected := `
# HELP spendwise_budget_over_limit_total Budgets found over their limit after an expense change
# TYPE spendwise_budget_over_limit_total counter
spendwise_budget_over_limit_total 2
`
	require.NoError(t, testutil.CollectAndCompare(m.budgetOverLimit, strings.NewReader(expected)))
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP(http.MethodGet, "/api/budgets/{id}", http.StatusOK, 20*time.Millisecond)
	m.EventConsumed("created", nil)
	m.SheetsExport(errors.New("quota"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `spendwise_http_requests_total{method="GET",route="/api/budgets/{id}",status="200"} 1`)
	assert.Contains(t, body, `spendwise_expense_events_consumed_total{kind="created",result="ok"} 1`)
	assert.Contains(t, body, `spendwise_sheets_exports_total{result="error"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestSecurityCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RateLimited()
	m.SuspiciousRequest()
	m.SuspiciousRequest()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.suspicious))
}
