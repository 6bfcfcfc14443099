package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"budgetlog/internal/core"
)

func TestParseTransactionForm(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
		want core.Input
	}{
		{
			name: "all fields",
			form: url.Values{"text": {"Groceries"}, "amount": {"-120"}, "category": {"Food"}, "type": {"expense"}},
			want: core.Input{Text: "Groceries", Amount: "-120", Category: "Food", Type: core.Expense},
		},
		{
			name: "trims and strips control characters",
			form: url.Values{"text": {"  Bus\x00 ticket "}, "amount": {" 30 "}, "category": {"Transport"}, "type": {"EXPENSE"}},
			want: core.Input{Text: "Bus ticket", Amount: "30", Category: "Transport", Type: core.Expense},
		},
		{
			name: "missing fields stay empty",
			form: url.Values{},
			want: core.Input{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTransactionForm(tt.form); got != tt.want {
				t.Errorf("ParseTransactionForm() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	if _, ok := ParseFilter(url.Values{}); ok {
		t.Error("ParseFilter() without category should report false")
	}
	got, ok := ParseFilter(url.Values{"category": {" Food "}})
	if !ok || got != "Food" {
		t.Errorf("ParseFilter() = %q, %v", got, ok)
	}
	got, ok = ParseFilter(url.Values{"category": {""}})
	if !ok || got != "" {
		t.Errorf("ParseFilter(empty) = %q, %v", got, ok)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1732112345678", 1732112345678, false},
		{"0", 0, true},
		{"-4", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.SetPathValue("id", tt.raw)
		got, err := ParseID(r)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseFormOrFail(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader("text=a&amount=1"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := ParseFormOrFail(r); resp != nil {
		t.Fatal("ParseFormOrFail() should succeed on a valid form")
	}
	if r.Form.Get("text") != "a" {
		t.Errorf("form text = %q", r.Form.Get("text"))
	}

	r = httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader("%zz"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := ParseFormOrFail(r); resp == nil {
		t.Error("ParseFormOrFail() should fail on a malformed body")
	}
}
