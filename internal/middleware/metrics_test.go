package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chantierpro/payments/internal/infrastructure/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() (*observability.Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return observability.NewMetrics("test", reg), reg
}

func TestMetrics_RecordsRequestAndDuration(t *testing.T) {
	metrics, reg := newTestMetrics()

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Post("/checkout/sessions", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/checkout/sessions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	var foundTotal, foundDuration bool
	for _, mf := range families {
		switch *mf.Name {
		case "test_http_requests_total":
			foundTotal = true
			require.NotEmpty(t, mf.Metric)
		case "test_http_request_duration_seconds":
			foundDuration = true
			require.NotEmpty(t, mf.Metric)
		}
	}
	assert.True(t, foundTotal, "http_requests_total should be recorded")
	assert.True(t, foundDuration, "http_request_duration should be recorded")
}

func TestMetrics_UsesRoutePatternNotPath(t *testing.T) {
	metrics, reg := newTestMetrics()

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/payments/{id}/status", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/payments/2f8a1bfb-7b70-4455-b7bc-61b0a1a1a111/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if *mf.Name != "test_http_requests_total" {
			continue
		}
		for _, m := range mf.Metric {
			for _, l := range m.Label {
				if *l.Name == "path" {
					assert.Equal(t, "/payments/{id}/status", *l.Value)
				}
			}
		}
	}
}

func TestMetrics_ErrorStatusRecorded(t *testing.T) {
	metrics, _ := newTestMetrics()

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Post("/webhooks/{provider}", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetrics_NoRoutePattern(t *testing.T) {
	metrics, _ := newTestMetrics()

	handler := Metrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Request outside chi routing falls back to the raw path label.
	req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

	sw.WriteHeader(http.StatusConflict)
	assert.Equal(t, http.StatusConflict, sw.statusCode)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStatusWriter_DefaultStatus(t *testing.T) {
	w := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

	sw.Write([]byte("ok"))
	assert.Equal(t, http.StatusOK, sw.statusCode)
}
