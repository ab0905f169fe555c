package checkout

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yesviral/checkout-api/internal/order"
)

// BuildSuccessURL appends the order's display fields to the success page URL
// as individual query parameters. The result carries display data only; the
// client secret and payment method never appear here.
func BuildSuccessURL(base string, o order.Order) (string, error) {
	if base == "" {
		return "", errors.New("checkout: success base URL not configured")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("platform", o.Platform)
	q.Set("service", o.Service)
	q.Set("quantity", strconv.FormatInt(o.Quantity, 10))
	q.Set("reference", o.Reference)
	q.Set("total", o.Total.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Redirect sends the terminal redirect to the success page. 303 forces a GET
// regardless of the method that completed the payment.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
