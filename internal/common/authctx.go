package common

import "context"

type customerEmailKey struct{}

// WithCustomerEmail stores the verified storefront account email on the context.
func WithCustomerEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, customerEmailKey{}, email)
}

// CustomerEmail extracts the storefront account email from the context, if any.
// Checkout never requires it; when present it prefills billing details.
func CustomerEmail(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	email, ok := ctx.Value(customerEmailKey{}).(string)
	if !ok || email == "" {
		return "", false
	}
	return email, true
}
