package order

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Decode reason tags. Missing and invalid field reasons carry the field name,
// e.g. "missing-field:reference".
const (
	ReasonMalformedBase64 = "malformed-base64"
	ReasonMalformedJSON   = "malformed-json"
)

// MissingFieldReason builds the reason tag for an absent required field.
func MissingFieldReason(field string) string { return "missing-field:" + field }

// InvalidValueReason builds the reason tag for a present but unusable field.
func InvalidValueReason(field string) string { return "invalid-value:" + field }

// DecodeError describes why an order payload could not be decoded. Callers
// render a neutral "start from the origin site" state instead of surfacing it.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("decode order: %s: %v", e.Reason, e.Err)
	}
	return "decode order: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DecodeReason extracts the reason tag when err is a DecodeError.
func DecodeReason(err error) (string, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// flexNumber accepts a JSON number or a numeric string; storefront payloads
// are inconsistent about which one they carry.
type flexNumber string

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexNumber(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexNumber(n.String())
	return nil
}

type wireOrder struct {
	Platform  string     `json:"platform" validate:"required"`
	Service   string     `json:"service" validate:"required"`
	Quantity  flexNumber `json:"quantity"`
	Amount    flexNumber `json:"amount"`
	Reference string     `json:"reference"`
	Username  string     `json:"username"`
	Link      string     `json:"link"`
	Total     flexNumber `json:"total" validate:"required"`
	Email     string     `json:"email" validate:"omitempty,email"`
	Package   string     `json:"package"`
	Type      string     `json:"type"`
}

// Decode parses the raw value of the order parameter: base64 of UTF-8 JSON.
// It is pure and total; the same input always yields the same Order or the
// same tagged DecodeError, and it never panics on any input string.
func Decode(raw string) (Order, error) {
	var zero Order

	// The URL layer turns '+' into a space before the value reaches us.
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), " ", "+")

	data, err := decodeBase64(cleaned)
	if err != nil {
		return zero, &DecodeError{Reason: ReasonMalformedBase64, Err: err}
	}

	var wire wireOrder
	if err := json.Unmarshal(data, &wire); err != nil {
		return zero, &DecodeError{Reason: ReasonMalformedJSON, Err: err}
	}

	if err := validate.Struct(wire); err != nil {
		return zero, translateValidation(err)
	}

	reference := firstNonEmpty(wire.Reference, wire.Username, wire.Link)
	if strings.TrimSpace(reference) == "" {
		return zero, &DecodeError{Reason: MissingFieldReason("reference")}
	}

	quantity, err := parseQuantity(wire.Quantity, wire.Amount)
	if err != nil {
		return zero, err
	}

	total, err := decimal.NewFromString(string(wire.Total))
	if err != nil || total.IsNegative() {
		return zero, &DecodeError{Reason: InvalidValueReason("total"), Err: err}
	}

	return Order{
		Platform:  strings.TrimSpace(wire.Platform),
		Service:   strings.TrimSpace(wire.Service),
		Quantity:  quantity,
		Reference: strings.TrimSpace(reference),
		Total:     total,
		Email:     strings.TrimSpace(wire.Email),
		Package:   strings.TrimSpace(wire.Package),
		Type:      strings.TrimSpace(wire.Type),
	}, nil
}

func decodeBase64(value string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(value)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func parseQuantity(primary, fallback flexNumber) (int64, error) {
	value := string(primary)
	field := "quantity"
	if strings.TrimSpace(value) == "" {
		value = string(fallback)
		field = "amount"
	}
	if strings.TrimSpace(value) == "" {
		return 0, &DecodeError{Reason: MissingFieldReason("quantity")}
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, &DecodeError{Reason: InvalidValueReason(field), Err: err}
	}
	return parsed, nil
}

func translateValidation(err error) *DecodeError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &DecodeError{Reason: ReasonMalformedJSON, Err: err}
	}
	fe := fieldErrs[0]
	if fe.Tag() == "required" {
		return &DecodeError{Reason: MissingFieldReason(fe.Field()), Err: err}
	}
	return &DecodeError{Reason: InvalidValueReason(fe.Field()), Err: err}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
