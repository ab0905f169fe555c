package checkout

import (
	"time"

	"github.com/yesviral/checkout-api/internal/order"
	"github.com/yesviral/checkout-api/internal/payment"
)

// Session statuses. A session moves strictly forward through the payment
// flow; failed is re-enterable only when the failure was retryable.
const (
	StatusIdle           = "idle"
	StatusAwaitingMethod = "awaiting-method"
	StatusConfirming     = "confirming"
	StatusSucceeded      = "succeeded"
	StatusFailed         = "failed"
)

// PaymentSession is the server-side record of one checkout attempt. It holds
// the decoded order, the provider client secret, and the current state of the
// confirmation flow. The client secret is scoped to this session only and is
// never written to the success URL or logs.
type PaymentSession struct {
	ID           string      `json:"id"`
	Order        order.Order `json:"order"`
	RawOrder     string      `json:"rawOrder"`
	Email        string      `json:"email,omitempty"`
	ClientSecret string      `json:"clientSecret,omitempty"`
	Status       string      `json:"status"`
	LastError    string      `json:"lastError,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	Retryable    bool        `json:"retryable"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Terminal reports whether the session has reached a final successful state.
func (s PaymentSession) Terminal() bool {
	return s.Status == StatusSucceeded
}

// InFlight reports whether a transition is currently being processed, in
// which case submit and confirm must be rejected rather than doubled up.
func (s PaymentSession) InFlight() bool {
	return s.Status == StatusConfirming
}

// Message returns the user-visible text for the session's current state. It
// surfaces provider decline messages verbatim when present; the provider
// sanitises those of card data before they ever reach this service.
func (s PaymentSession) Message() string {
	switch s.Status {
	case StatusIdle:
		return "Order received. Continue to payment."
	case StatusAwaitingMethod:
		return "Enter your payment details to complete the purchase."
	case StatusConfirming:
		return "Confirming your payment…"
	case StatusSucceeded:
		return "Payment successful. Full details have been emailed to you."
	case StatusFailed:
		return s.failureMessage()
	}
	return ""
}

func (s PaymentSession) failureMessage() string {
	switch s.Reason {
	case payment.ConfirmReasonDeclined:
		if s.LastError != "" {
			return s.LastError
		}
		return "Your payment was declined. Please try a different payment method."
	case payment.ConfirmReasonStatusUnknown:
		return "We could not verify the payment outcome. Please check your order status before retrying."
	case payment.ConfirmReasonTimeout:
		return "The payment service did not respond in time. Please check your order status before retrying."
	case payment.IntentReasonNetwork, payment.IntentReasonServer,
		payment.IntentReasonBadResponse, payment.IntentReasonMissingSecret:
		return "We could not start the payment. Please try again."
	}
	if s.LastError != "" {
		return s.LastError
	}
	return "Payment failed. Please try again."
}
