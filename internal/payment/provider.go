package payment

import "context"

// Confirmation statuses a provider can report. Anything that is not terminal
// success is either a failure (returned as an error) or indeterminate.
const (
	StatusSucceeded      = "succeeded"
	StatusRequiresAction = "requires_action"
	StatusProcessing     = "processing"
)

// BillingDetails carries optional billing context forwarded with a
// confirmation. It never contains card data; the hosted payment widget owns
// that exclusively.
type BillingDetails struct {
	Email string
}

// ConfirmResult is the normalised outcome of a provider confirmation call.
type ConfirmResult struct {
	Status string
}

// Terminal reports whether the result needs no further confirmation action.
func (r ConfirmResult) Terminal() bool {
	return r.Status == StatusSucceeded
}

// Provider abstracts the card provider's confirmation operation. The method
// handle is an opaque provider-issued reference to tokenised credentials.
type Provider interface {
	Confirm(ctx context.Context, clientSecret, methodHandle string, billing BillingDetails) (ConfirmResult, error)
}
