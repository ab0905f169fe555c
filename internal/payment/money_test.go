package payment_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yesviral/checkout-api/internal/payment"
)

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		total string
		want  int64
	}{
		{"19.99", 1999},
		{"9.99", 999},
		{"10.005", 1001}, // half rounds away from zero
		{"10.004", 1000},
		{"0.01", 1},
		{"0", 0},
		{"100", 10000},
		{"1.005", 101},
	}
	for _, tc := range cases {
		got := payment.MinorUnits(decimal.RequireFromString(tc.total))
		if got != tc.want {
			t.Fatalf("MinorUnits(%s): got %d want %d", tc.total, got, tc.want)
		}
	}
}
