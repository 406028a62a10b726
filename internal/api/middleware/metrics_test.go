package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RoutePatternLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	router := chi.NewRouter()
	router.Use(m.Middleware())
	router.Get("/api/nyheter/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nyheter/"+id, nil))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ukjent", nil))

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/api/nyheter/{id}", "200")); got != 3 {
		t.Errorf("запросов по шаблону = %v, ожидалось 3", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, unmatchedPath, "404")); got != 1 {
		t.Errorf("запросов без маршрута = %v, ожидалось 1", got)
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Каждый registry получает свой набор метрик без паники при повторной регистрации.
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusTeapot || rec.Body.String() != "ok" {
		t.Errorf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}
