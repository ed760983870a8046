package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCellTextRoundTrip(t *testing.T) {
	text := FormatCellText(decimal.NewFromInt(80), "20+15")
	if text != "Estimate: £80.00\n= 20+15" {
		t.Fatalf("unexpected text %q", text)
	}
	est, expr := ParseCellText(text)
	if !est.Equal(decimal.NewFromInt(80)) || expr != "20+15" {
		t.Fatalf("got %s %q", est, expr)
	}
}

func TestParseCellTextLenient(t *testing.T) {
	cases := []struct {
		in       string
		estimate string
		expr     string
	}{
		{"Estimate: £12.50", "12.5", ""},
		{"= 5+5", "0", "5+5"},
		{"42", "0", "42"},
		{"groceries", "0", ""},
		{"Estimate: £1,000.00\r\n=\r\n10+\r\n5", "1000", "10+ 5"},
	}
	for _, tc := range cases {
		est, expr := ParseCellText(tc.in)
		if !est.Equal(decimal.RequireFromString(tc.estimate)) || expr != tc.expr {
			t.Fatalf("%q: got %s %q", tc.in, est, expr)
		}
	}
}

func TestFormatPaymentLine(t *testing.T) {
	cases := []struct {
		line PaymentLine
		want string
	}{
		{PaymentLine{"Rent", decimal.NewFromInt(1400), "Amex", true}, "Rent: £1400.00 (Amex) ✓"},
		{PaymentLine{"Gym", decimal.NewFromInt(30), "", false}, "Gym: £30.00"},
	}
	for _, tc := range cases {
		if got := FormatPaymentLine(tc.line); got != tc.want {
			t.Fatalf("got %q, want %q", got, tc.want)
		}
	}
}

func TestFormatPaymentsDue(t *testing.T) {
	if got := FormatPaymentsDue(nil); got != "" {
		t.Fatalf("expected empty block, got %q", got)
	}
	block := FormatPaymentsDue([]PaymentLine{{Category: "Rent", Amount: decimal.NewFromInt(1)}})
	if !strings.HasPrefix(block, AutoGeneratedMarker+"\n") || !IsAutoGenerated(block) {
		t.Fatalf("block missing marker: %q", block)
	}
	if IsAutoGenerated("pay plumber cash") {
		t.Fatal("custom text reported as auto-generated")
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("£1,400.50")
	if err != nil || !d.Equal(decimal.RequireFromString("1400.5")) {
		t.Fatalf("got %s %v", d, err)
	}
	if _, err := ParseAmount("-3"); err == nil {
		t.Fatal("expected negative amount error")
	}
	if d, err := ParseAmount(""); err != nil || !d.IsZero() {
		t.Fatalf("empty: got %s %v", d, err)
	}
}
