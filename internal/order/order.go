package order

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Order describes what is being purchased. It carries display and billing
// fields only and is immutable once decoded; the storefront backend remains
// the source of truth for the amount actually charged.
type Order struct {
	Platform  string
	Service   string
	Quantity  int64
	Reference string
	Total     decimal.Decimal
	Email     string
	Package   string
	Type      string
}

// Equal reports field-for-field equality, comparing totals by numeric value.
func (o Order) Equal(other Order) bool {
	return o.Platform == other.Platform &&
		o.Service == other.Service &&
		o.Quantity == other.Quantity &&
		o.Reference == other.Reference &&
		o.Total.Equal(other.Total) &&
		o.Email == other.Email &&
		o.Package == other.Package &&
		o.Type == other.Type
}

// Encode serialises the order back into the base64(JSON) scheme used by the
// storefront links. Decode(Encode(o)) yields an order equal to o.
func Encode(o Order) string {
	wire := map[string]any{
		"platform":  o.Platform,
		"service":   o.Service,
		"quantity":  o.Quantity,
		"reference": o.Reference,
		"total":     o.Total.String(),
	}
	if strings.TrimSpace(o.Email) != "" {
		wire["email"] = o.Email
	}
	if strings.TrimSpace(o.Package) != "" {
		wire["package"] = o.Package
	}
	if strings.TrimSpace(o.Type) != "" {
		wire["type"] = o.Type
	}
	raw, _ := json.Marshal(wire)
	return base64.StdEncoding.EncodeToString(raw)
}
