package order_test

import (
	"encoding/base64"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yesviral/checkout-api/internal/order"
)

func encodeJSON(t *testing.T, payload string) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestDecodeHappyPath(t *testing.T) {
	raw := encodeJSON(t, `{"platform":"Instagram","service":"Followers","amount":1000,"reference":"@user","total":9.99}`)
	got, err := order.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := order.Order{
		Platform:  "Instagram",
		Service:   "Followers",
		Quantity:  1000,
		Reference: "@user",
		Total:     decimal.RequireFromString("9.99"),
	}
	if !got.Equal(want) {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestDecodeNumericStrings(t *testing.T) {
	raw := encodeJSON(t, `{"platform":"TikTok","service":"Likes","quantity":"500","reference":"https://tiktok.com/@x/video/1","total":"19.99","email":"buyer@example.com"}`)
	got, err := order.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Quantity != 500 {
		t.Fatalf("quantity: got %d", got.Quantity)
	}
	if !got.Total.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("total: got %s", got.Total)
	}
	if got.Email != "buyer@example.com" {
		t.Fatalf("email: got %q", got.Email)
	}
}

func TestDecodeUsernameFallsBackToReference(t *testing.T) {
	raw := encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":100,"username":"someone","total":4.5}`)
	got, err := order.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Reference != "someone" {
		t.Fatalf("reference: got %q", got.Reference)
	}
}

func TestDecodeErrorTags(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		reason string
	}{
		{"not base64", "!!not-base64!!", order.ReasonMalformedBase64},
		{"not json", encodeJSON(t, "this is not json"), order.ReasonMalformedJSON},
		{"empty input", "", order.ReasonMalformedJSON},
		{"missing platform", encodeJSON(t, `{"service":"Followers","quantity":10,"reference":"x","total":1}`), order.MissingFieldReason("platform")},
		{"missing service", encodeJSON(t, `{"platform":"Instagram","quantity":10,"reference":"x","total":1}`), order.MissingFieldReason("service")},
		{"missing total", encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":10,"reference":"x"}`), order.MissingFieldReason("total")},
		{"missing reference", encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":10,"total":1}`), order.MissingFieldReason("reference")},
		{"blank reference", encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":10,"reference":"   ","total":1}`), order.MissingFieldReason("reference")},
		{"missing quantity", encodeJSON(t, `{"platform":"Instagram","service":"Followers","reference":"x","total":1}`), order.MissingFieldReason("quantity")},
		{"zero quantity", encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":0,"reference":"x","total":1}`), order.InvalidValueReason("quantity")},
		{"fractional quantity", encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":"1.5","reference":"x","total":1}`), order.InvalidValueReason("quantity")},
		{"negative total", encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":10,"reference":"x","total":-2}`), order.InvalidValueReason("total")},
		{"non-numeric total", encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":10,"reference":"x","total":"free"}`), order.InvalidValueReason("total")},
		{"bad email", encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":10,"reference":"x","total":1,"email":"nope"}`), order.InvalidValueReason("email")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := order.Decode(tc.raw)
			if err == nil {
				t.Fatalf("expected error")
			}
			reason, ok := order.DecodeReason(err)
			if !ok {
				t.Fatalf("expected DecodeError, got %T", err)
			}
			if reason != tc.reason {
				t.Fatalf("reason: got %q want %q", reason, tc.reason)
			}
		})
	}
}

func TestDecodeIdempotent(t *testing.T) {
	raw := encodeJSON(t, `{"platform":"YouTube","service":"Views","quantity":2500,"reference":"https://youtu.be/abc","total":"12.00"}`)
	first, err1 := order.Decode(raw)
	second, err2 := order.Decode(raw)
	if err1 != nil || err2 != nil {
		t.Fatalf("decode: %v / %v", err1, err2)
	}
	if !first.Equal(second) {
		t.Fatalf("decode not idempotent: %+v vs %+v", first, second)
	}
}

func TestDecodeToleratesSpaceForPlus(t *testing.T) {
	raw := encodeJSON(t, `{"platform":"Instagram","service":"Followers","quantity":1,"reference":"@a?b","total":1}`)
	mangled := ""
	for _, c := range raw {
		if c == '+' {
			mangled += " "
		} else {
			mangled += string(c)
		}
	}
	if _, err := order.Decode(mangled); err != nil {
		t.Fatalf("decode mangled payload: %v", err)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	orders := []order.Order{
		{
			Platform:  "Instagram",
			Service:   "Followers",
			Quantity:  1000,
			Reference: "@user",
			Total:     decimal.RequireFromString("9.99"),
		},
		{
			Platform:  "TikTok",
			Service:   "Views",
			Quantity:  50000,
			Reference: "https://tiktok.com/@x/video/123?lang=en&x=1",
			Total:     decimal.RequireFromString("0"),
			Email:     "a@b.co",
			Package:   "Premium Delivery",
			Type:      "high-quality",
		},
	}
	for _, want := range orders {
		got, err := order.Decode(order.Encode(want))
		if err != nil {
			t.Fatalf("round trip decode: %v", err)
		}
		if !got.Equal(want) {
			t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
		}
	}
}
