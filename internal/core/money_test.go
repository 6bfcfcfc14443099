package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"5000", "5000", true},
		{"-300", "-300", true},
		{"+12", "12", true},
		{"1.23", "1.23", true},
		{"1,23", "", false},
		{"12,50", "", false},
		{"1,000", "", false},
		{"1,000.50", "", false},
		{"+-5", "", false},
		{"++5", "", false},
		{"--5", "", false},
		{"+", "", false},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"2E-1", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestFormatSigned(t *testing.T) {
	if got := FormatSigned("₹", decimal.NewFromInt(5000)); got != "+₹5000" {
		t.Fatalf("got %q", got)
	}
	if got := FormatSigned("₹", decimal.NewFromInt(-300)); got != "-₹300" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatTotal(t *testing.T) {
	if got := FormatTotal("₹", decimal.NewFromInt(4700)); got != "₹4700.00" {
		t.Fatalf("got %q", got)
	}
	if got := FormatTotal("€", decimal.RequireFromString("-12.5")); got != "-€12.50" {
		t.Fatalf("got %q", got)
	}
}
