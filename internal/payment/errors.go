package payment

import (
	"errors"
	"fmt"
)

// Intent failure reasons.
const (
	IntentReasonNetwork       = "network-error"
	IntentReasonServer        = "server-error"
	IntentReasonBadResponse   = "bad-response"
	IntentReasonMissingSecret = "missing-secret"
	IntentReasonTimeout       = "timeout"
	IntentReasonInvalidAmount = "invalid-amount"
)

// IntentError describes a failed attempt to create a payment intent. Intent
// failures never mutate checkout state, so re-invoking Create is always safe.
type IntentError struct {
	Reason  string
	Status  int
	Message string
	Err     error
}

func (e *IntentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status > 0 {
		return fmt.Sprintf("payment intent: %s (status %d)", e.Reason, e.Status)
	}
	return "payment intent: " + e.Reason
}

func (e *IntentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IntentReason extracts the reason tag when err is an IntentError.
func IntentReason(err error) (string, bool) {
	var ie *IntentError
	if errors.As(err, &ie) {
		return ie.Reason, true
	}
	return "", false
}

// Confirmation failure reasons.
const (
	ConfirmReasonDeclined      = "declined"
	ConfirmReasonStatusUnknown = "status-unknown"
	ConfirmReasonTimeout       = "timeout"
)

// ProviderError describes a failed or indeterminate confirmation. Message is
// the provider-supplied human-readable text when one is available; provider
// messages are pre-sanitised of card data and safe to surface verbatim.
type ProviderError struct {
	Reason  string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("payment confirm: %s: %s", e.Reason, e.Message)
	}
	return "payment confirm: " + e.Reason
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConfirmReason extracts the reason tag when err is a ProviderError.
func ConfirmReason(err error) (string, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Reason, true
	}
	return "", false
}
