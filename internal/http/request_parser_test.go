package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"savings/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		query     string
		wantYear  int
		wantMonth time.Month
		wantErr   bool
	}{
		{"defaults", "", 2024, time.March, false},
		{"explicit", "year=2023&month=12", 2023, time.December, false},
		{"month only", "month=1", 2024, time.January, false},
		{"month zero", "month=0", 0, 0, true},
		{"month thirteen", "month=13", 0, 0, true},
		{"bad year", "year=abc", 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tc.query)
			y, m, err := ParseMonthParams(q, now)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || y != tc.wantYear || m != tc.wantMonth {
				t.Fatalf("got %d-%d %v", y, m, err)
			}
		})
	}

	q, _ := url.ParseQuery("month=13")
	if _, _, err := ParseMonthParams(q, now); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func newParser(t *testing.T, body string) *RequestBodyParser {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("parse %q: %v", body, err)
	}
	return p
}

func TestRequestBodyParser_JSON(t *testing.T) {
	p := newParser(t, `{"description":"  cinema\u0007 ","amount":0.10,"paid":true,"note":null}`)
	if !p.IsJSON() {
		t.Fatal("expected JSON body")
	}
	if got := p.Get("description"); got != "cinema" {
		t.Errorf("description = %q", got)
	}
	if got := p.Get("amount"); got != "0.10" {
		t.Errorf("amount must keep its exact text, got %q", got)
	}
	if got := p.Get("paid"); got != "true" {
		t.Errorf("paid = %q", got)
	}
	if p.Has("note") || p.Has("missing") || !p.Has("amount") {
		t.Error("Has must ignore null and absent fields")
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	p := newParser(t, "description=luz&amount=1%2C50")
	if p.IsJSON() {
		t.Fatal("expected form body")
	}
	if p.Get("amount") != "1,50" || !p.Has("description") {
		t.Fatalf("unexpected form values %q", p.Get("amount"))
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"broken":`))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected JSON error")
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", maxBodyBytes+1)))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected size error")
	}
	if p := newParser(t, ""); p.Get("anything") != "" {
		t.Fatal("empty body must yield empty values")
	}
}

func TestParseTransaction(t *testing.T) {
	tx, err := parseTransaction(newParser(t, `{"type":"expense","amount":"12,5","category":"Luz","description":"conta","date":"2024-01-02"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tx.Type != core.Expense || tx.Amount.String() != "12.5" || tx.Date.String() != "2024-01-02" {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	tx, err = parseTransaction(newParser(t, `{"type":"income","amount":1,"category":"x","description":"y"}`))
	if err != nil || !tx.Date.IsZero() {
		t.Fatalf("missing date must stay zero: %+v %v", tx, err)
	}

	cases := map[string]error{
		`{"type":"gift","amount":1}`:                   core.ErrInvalidType,
		`{"type":"income","amount":"1e3"}`:             core.ErrInvalidAmount,
		`{"type":"income","amount":"1","date":"2024"}`: core.ErrInvalidDate,
	}
	for body, want := range cases {
		if _, err := parseTransaction(newParser(t, body)); !errors.Is(err, want) {
			t.Errorf("%s: expected %v, got %v", body, want, err)
		}
	}
}

func TestParsePatch(t *testing.T) {
	p, err := parsePatch(newParser(t, `{"amount":"3.20","description":"novo"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Amount == nil || p.Amount.String() != "3.2" || p.Description == nil || *p.Description != "novo" {
		t.Fatalf("unexpected patch %+v", p)
	}
	if p.Type != nil || p.Category != nil || p.Date != nil {
		t.Fatal("absent fields must stay nil")
	}
	if _, err := parsePatch(newParser(t, `{"date":"tomorrow"}`)); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"":             "",
	}
	for header, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := bearerToken(r); got != want {
			t.Errorf("%q: got %q, want %q", header, got, want)
		}
	}
}
