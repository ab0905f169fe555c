package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yesviral/checkout-api/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("checkout", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/checkout/sessions"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/checkout/sessions", "201"))
	if total != 1 {
		t.Fatalf("expected counter to be 1, got %v", total)
	}

	samples := testutil.CollectAndCount(metrics.ReqDur)
	if samples == 0 {
		t.Fatalf("expected histogram sample")
	}

	if metrics.InFlight != nil {
		if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
			t.Fatalf("expected no in-flight requests, got %v", val)
		}
	}
}

func TestDomainMetricsRegisterOnce(t *testing.T) {
	obs.MustRegisterDomainMetrics("checkout", prometheus.NewRegistry())
	obs.MustRegisterDomainMetrics("checkout", prometheus.NewRegistry())

	if obs.ConfirmationsTotal == nil || obs.IntentRequestsTotal == nil {
		t.Fatal("expected domain collectors to be initialised")
	}
	obs.ConfirmationsTotal.WithLabelValues("failed", "declined").Inc()
	got := testutil.ToFloat64(obs.ConfirmationsTotal.WithLabelValues("failed", "declined"))
	if got < 1 {
		t.Fatalf("expected confirmation counter to increment, got %v", got)
	}
}
