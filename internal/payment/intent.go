package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yesviral/checkout-api/internal/obs"
	"github.com/yesviral/checkout-api/internal/resilience"
)

// Metadata is the opaque reconciliation blob forwarded with an intent
// request. It must never contain raw payment credentials.
type Metadata map[string]string

// IntentClient creates payment intents through the storefront backend, which
// owns pricing and is the source of truth for the charged amount.
type IntentClient struct {
	BaseURL string
	HTTP    resilience.HTTPClient
	Timeout time.Duration
}

type intentRequest struct {
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Email    string            `json:"email,omitempty"`
}

type intentResponse struct {
	ClientSecret string `json:"clientSecret"`
	Error        string `json:"error"`
}

// Create requests a client secret for the given amount in minor units.
// Failures leave no state behind; calling Create again is always safe.
func (c IntentClient) Create(ctx context.Context, amountMinorUnits int64, meta Metadata, email string) (string, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return "", errors.New("payment: intent backend not configured")
	}
	if amountMinorUnits <= 0 {
		return "", &IntentError{Reason: IntentReasonInvalidAmount, Message: "charge amount must be positive"}
	}

	ctx, span := otel.Tracer("payment.IntentClient").Start(ctx, "IntentClient.Create")
	defer span.End()
	span.SetAttributes(attribute.Int64("payment.amount_minor", amountMinorUnits))

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(intentRequest{
		Amount:   amountMinorUnits,
		Metadata: meta,
		Email:    strings.TrimSpace(email),
	})
	if err != nil {
		return "", &IntentError{Reason: IntentReasonBadResponse, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", &IntentError{Reason: IntentReasonNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		reason := IntentReasonNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			reason = IntentReasonTimeout
		}
		recordIntentOutcome(reason)
		return "", &IntentError{Reason: reason, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed intentResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := parsed.Error
		if decodeErr != nil || message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		recordIntentOutcome(IntentReasonServer)
		return "", &IntentError{Reason: IntentReasonServer, Status: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		recordIntentOutcome(IntentReasonBadResponse)
		return "", &IntentError{Reason: IntentReasonBadResponse, Err: decodeErr}
	}
	secret := strings.TrimSpace(parsed.ClientSecret)
	if secret == "" {
		recordIntentOutcome(IntentReasonMissingSecret)
		return "", &IntentError{Reason: IntentReasonMissingSecret}
	}

	recordIntentOutcome("success")
	return secret, nil
}

func recordIntentOutcome(result string) {
	if obs.IntentRequestsTotal != nil {
		obs.IntentRequestsTotal.WithLabelValues(result).Inc()
	}
}
