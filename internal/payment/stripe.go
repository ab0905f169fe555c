package payment

import (
	"context"
	"errors"
	"strings"
	"sync"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

var stripeInit sync.Once

// InitStripe configures the Stripe SDK key for the whole process. The SDK is
// initialised exactly once before any checkout session is served and is
// read-only thereafter; repeated calls are no-ops.
func InitStripe(secretKey string) {
	stripeInit.Do(func() {
		stripe.Key = strings.TrimSpace(secretKey)
	})
}

// Stripe implements Provider against the Stripe payment-intents API.
type Stripe struct{}

// Confirm drives the provider confirmation for the intent the client secret
// belongs to. Once the call is sent it cannot be aborted; card networks do
// not support client-side cancellation mid-authorisation.
func (Stripe) Confirm(ctx context.Context, clientSecret, methodHandle string, billing BillingDetails) (ConfirmResult, error) {
	intentID, err := IntentIDFromSecret(clientSecret)
	if err != nil {
		return ConfirmResult{}, &ProviderError{Reason: ConfirmReasonDeclined, Message: "invalid payment session", Err: err}
	}
	if strings.TrimSpace(methodHandle) == "" {
		return ConfirmResult{}, &ProviderError{Reason: ConfirmReasonDeclined, Message: "a payment method is required"}
	}

	params := &stripe.PaymentIntentConfirmParams{
		Params:        stripe.Params{Context: ctx},
		PaymentMethod: stripe.String(methodHandle),
	}
	if strings.TrimSpace(billing.Email) != "" {
		params.ReceiptEmail = stripe.String(billing.Email)
	}

	pi, err := paymentintent.Confirm(intentID, params)
	if err != nil {
		return ConfirmResult{}, translateStripeError(err)
	}
	return translateStripeStatus(pi)
}

// IntentIDFromSecret derives the intent identifier from a client secret of
// the form "pi_xxx_secret_yyy".
func IntentIDFromSecret(clientSecret string) (string, error) {
	secret := strings.TrimSpace(clientSecret)
	idx := strings.Index(secret, "_secret")
	if !strings.HasPrefix(secret, "pi_") || idx <= 0 {
		return "", errors.New("payment: malformed client secret")
	}
	return secret[:idx], nil
}

func translateStripeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Reason: ConfirmReasonTimeout, Message: "the payment provider did not respond in time", Err: err}
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return &ProviderError{Reason: ConfirmReasonDeclined, Message: stripeErr.Msg, Err: err}
	}
	// Transport failure mid-confirmation: the charge may or may not have gone
	// through, so the outcome is indeterminate.
	return &ProviderError{Reason: ConfirmReasonStatusUnknown, Err: err}
}

func translateStripeStatus(pi *stripe.PaymentIntent) (ConfirmResult, error) {
	if pi == nil {
		return ConfirmResult{}, &ProviderError{Reason: ConfirmReasonStatusUnknown}
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return ConfirmResult{Status: StatusSucceeded}, nil
	case stripe.PaymentIntentStatusProcessing:
		return ConfirmResult{Status: StatusProcessing}, nil
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		return ConfirmResult{Status: StatusRequiresAction}, nil
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		message := "your card was declined"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			message = pi.LastPaymentError.Msg
		}
		return ConfirmResult{}, &ProviderError{Reason: ConfirmReasonDeclined, Message: message}
	default:
		return ConfirmResult{}, &ProviderError{Reason: ConfirmReasonStatusUnknown}
	}
}
