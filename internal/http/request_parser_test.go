package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"budget/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
		wantErr   error
	}{
		{"both values provided", url.Values{"year": {"2024"}, "month": {"12"}}, 2024, 12, nil},
		{"only year", url.Values{"year": {"2023"}}, 2023, 4, nil},
		{"only month", url.Values{"month": {"5"}}, 2025, 5, nil},
		{"no values", url.Values{}, 2025, 4, nil},
		{"malformed year", url.Values{"year": {"20x5"}, "month": {"3"}}, 0, 0, core.ErrInvalidYear},
		{"malformed month", url.Values{"year": {"2025"}, "month": {"x"}}, 0, 0, core.ErrInvalidMonth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseMonthParams(tt.query.Get, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !core.IsValidation(err) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if result.Year != tt.wantYear || result.Month != tt.wantMonth {
				t.Errorf("got %d-%d, want %d-%d", result.Year, result.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func newParser(body string) *RequestBodyParser {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser_JSON(t *testing.T) {
	parser := newParser(`{"name": "test", "amount": 42.5, "paid": true, "week": 3}`)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}

	if got := parser.Get("name"); got != "test" {
		t.Errorf("Get('name') = %q", got)
	}
	if got := parser.Get("amount"); got != "42.5" {
		t.Errorf("Get('amount') = %q", got)
	}
	if !parser.GetBool("paid") {
		t.Error("GetBool('paid') = false")
	}
	if n, err := parser.GetInt("week", 0); err != nil || n != 3 {
		t.Errorf("GetInt('week') = %d, %v", n, err)
	}
	if n, err := parser.GetInt("missing", 7); err != nil || n != 7 {
		t.Errorf("GetInt('missing') = %d, %v", n, err)
	}
	if !parser.Has("paid") || parser.Has("missing") {
		t.Error("Has() wrong")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	parser := newParser("name=form+test&expression=%3D12%2B3&week=x")
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if got := parser.Get("name"); got != "form test" {
		t.Errorf("Get('name') = %q", got)
	}
	if got := parser.Get("expression"); got != "=12+3" {
		t.Errorf("Get('expression') = %q", got)
	}
	if _, err := parser.GetInt("week", 0); err == nil {
		t.Error("expected GetInt error")
	}
}

func TestRequestBodyParser_Object(t *testing.T) {
	raw, err := newParser("category=Rent&estimatedAmount=1400&paid=on&comments=").Object()
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got["category"] != "Rent" || got["estimatedAmount"] != "1400" || got["paid"] != true {
		t.Fatalf("object = %v", got)
	}
	if _, ok := got["comments"]; ok {
		t.Fatalf("empty field kept: %v", got)
	}

	raw, err = newParser(`{"name":"Taxi","amount":12}`).Object()
	if err != nil || string(raw) != `{"name":"Taxi","amount":12}` {
		t.Fatalf("JSON object = %s, %v", raw, err)
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	for _, body := range []string{`{"broken"`, `[1,2]`} {
		if err := newParser(body).Parse(); err == nil {
			t.Errorf("Parse(%q) expected error", body)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("a", maxBodyBytes+1)))
	if err := NewRequestBodyParser(httptest.NewRecorder(), req).Parse(); err == nil {
		t.Error("oversized body accepted")
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	parser := newParser("")
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Rent  ", "Rent"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2", "line1\nline2"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
