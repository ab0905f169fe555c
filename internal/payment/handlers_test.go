package payment_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yesviral/checkout-api/internal/payment"
	"github.com/yesviral/checkout-api/internal/resilience"
)

func TestProxyMirrorsUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["amount"].(float64) != 999 {
			t.Errorf("amount not forwarded: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"clientSecret": "pi_1_secret_2"})
	}))
	defer upstream.Close()

	h := &payment.Handler{
		UpstreamURL: upstream.URL,
		HTTP:        resilience.HTTPClient{Client: &http.Client{}},
	}
	rr := httptest.NewRecorder()
	h.Proxy(rr, httptest.NewRequest(http.MethodPost, "/api/v1/payment_intent", strings.NewReader(`{"amount":999}`)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["clientSecret"] != "pi_1_secret_2" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestProxyWrapsNonJSONUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer upstream.Close()

	h := &payment.Handler{
		UpstreamURL: upstream.URL,
		HTTP:        resilience.HTTPClient{Client: &http.Client{}},
	}
	rr := httptest.NewRecorder()
	h.Proxy(rr, httptest.NewRequest(http.MethodPost, "/api/v1/payment_intent", strings.NewReader("{}")))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "Upstream error" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestProxyUnreachableUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	upstream.Close()

	h := &payment.Handler{
		UpstreamURL: upstream.URL,
		HTTP:        resilience.HTTPClient{Client: &http.Client{}},
	}
	rr := httptest.NewRecorder()
	h.Proxy(rr, httptest.NewRequest(http.MethodPost, "/api/v1/payment_intent", strings.NewReader("{}")))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d", rr.Code)
	}
}

func TestConfigExposesPublishableKeyOnly(t *testing.T) {
	h := &payment.Handler{PublishableKey: "pk_live_abc"}
	rr := httptest.NewRecorder()
	h.Config(rr, httptest.NewRequest(http.MethodGet, "/api/v1/payment_config", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["publishableKey"] != "pk_live_abc" {
		t.Fatalf("unexpected response: %v", resp)
	}
}
