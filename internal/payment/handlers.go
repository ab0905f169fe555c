package payment

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/yesviral/checkout-api/internal/common"
	"github.com/yesviral/checkout-api/internal/resilience"
)

// Handler exposes the raw payment-intent proxy used by pages that talk to the
// provider SDK directly, plus the publishable client configuration.
type Handler struct {
	UpstreamURL    string
	HTTP           resilience.HTTPClient
	PublishableKey string
	MaxBodyBytes   int64
}

// Proxy forwards the intent request body to the storefront backend verbatim
// and mirrors its response. The proxy never retries on its own: a repeated
// intent request must come from the client so duplicates stay visible to it.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	if h == nil || strings.TrimSpace(h.UpstreamURL) == "" {
		common.JSONError(w, http.StatusInternalServerError, "PROXY_NOT_CONFIGURED", "payment intent proxy unavailable", nil)
		return
	}
	maxBytes := h.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 64 << 10
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unreadable request body", nil)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.UpstreamURL, bytes.NewReader(body))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "PROXY_FAILED", "proxy request failed", nil)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := h.HTTP
	if client.MaxAttempts == 0 {
		client.MaxAttempts = 1
	}
	resp, err := client.Do(r.Context(), req)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "could not reach the payment backend", nil)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "could not read the payment backend response", nil)
		return
	}
	if !json.Valid(raw) {
		common.JSON(w, resp.StatusCode, map[string]any{"error": "Upstream error", "raw": string(raw)})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(raw)
}

// Config reports the publishable provider key checkout pages initialise the
// payment SDK with. The secret key never appears here.
func (h *Handler) Config(w http.ResponseWriter, _ *http.Request) {
	if h == nil || strings.TrimSpace(h.PublishableKey) == "" {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment provider unavailable", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{"publishableKey": h.PublishableKey})
}
