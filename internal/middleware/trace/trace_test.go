package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/log"
	"spendwise/internal/metrics"
)

func newTestRouter(t *testing.T, buf *bytes.Buffer) (*chi.Mux, *metrics.Metrics) {
	t.Helper()
	logger := log.New(log.Config{Level: log.DefaultConfig().Level, Format: "json", Component: log.ComponentHTTP, Output: buf})
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(NewMiddleware(logger, m, func(*http.Request) string { return "10.0.0.9" }).Middleware)
	r.Get("/api/budgets/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetRequestID(r.Context()))
		log.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusTeapot)
	})
	return r, m
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	r, _ := newTestRouter(t, &buf)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/budgets/3", nil))

	id := rec.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"request_id":"`+id+`"`)
	assert.Contains(t, buf.String(), `"route":"/api/budgets/{id}"`)
	assert.Contains(t, buf.String(), `"client_ip":"10.0.0.9"`)
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	var buf bytes.Buffer
	r, _ := newTestRouter(t, &buf)

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/budgets/3", nil)
	req.Header.Set(HeaderRequestID, incoming)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/api/budgets/3", nil)
	req.Header.Set(HeaderRequestID, "not a uuid\nforged")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, "not a uuid\nforged", rec.Header().Get(HeaderRequestID))
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	r, m := newTestRouter(t, &buf)

	for _, path := range []string{"/api/budgets/1", "/api/budgets/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `spendwise_http_requests_total{method="GET",route="/api/budgets/{id}",status="418"} 2`)
	assert.Contains(t, body, `spendwise_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
}
