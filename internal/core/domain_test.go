package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-15", true},
		{" 2024-12-31 ", true},
		{"2024-13-01", false},
		{"15/01/2024", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
			}
			continue
		}
		if got := d.String(); got != strings.TrimSpace(tc.in) {
			t.Fatalf("round trip %q -> %q", tc.in, got)
		}
	}
}

func TestDateIn(t *testing.T) {
	d := NewDate(2024, time.January, 31)
	if !d.In(2024, time.January) {
		t.Fatal("expected January 2024")
	}
	if d.In(2024, time.February) || d.In(2023, time.January) {
		t.Fatal("unexpected match")
	}
	if (Date{}).In(1, time.January) {
		t.Fatal("zero date must never match")
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-02-01"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.D != NewDate(2024, time.February, 1) {
		t.Fatalf("unexpected date %v", v.D)
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) != `{"d":"2024-02-01"}` {
		t.Fatalf("marshal: %s %v", b, err)
	}

	for _, raw := range []string{`{"d":null}`, `{"d":""}`} {
		v.D = NewDate(2020, time.May, 5)
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if !v.D.IsZero() {
			t.Fatalf("%s: expected zero date", raw)
		}
	}

	if err := json.Unmarshal([]byte(`{"d":"yesterday"}`), &v); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseTransactionType(t *testing.T) {
	if tt, err := ParseTransactionType(" Income "); err != nil || tt != Income {
		t.Fatalf("got %q %v", tt, err)
	}
	if _, err := ParseTransactionType("transfer"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:        Expense,
		Amount:      decimal.NewFromInt(10),
		Category:    "Lazer",
		Description: "cinema",
		Date:        NewDate(2024, time.March, 3),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	accented := good
	accented.Description = strings.Repeat("ç", 200)
	if err := accented.Validate(); err != nil {
		t.Fatalf("200 accented characters must fit, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"bad type", func(tx *Transaction) { tx.Type = "gift" }, ErrInvalidType},
		{"empty description", func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) }, ErrDescriptionLong},
		{"long accented description", func(tx *Transaction) { tx.Description = strings.Repeat("ç", 201) }, ErrDescriptionLong},
		{"empty category", func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPatch(t *testing.T) {
	base := Transaction{
		ID:          "t1",
		UserID:      "u1",
		Type:        Expense,
		Amount:      decimal.NewFromInt(10),
		Category:    "Lazer",
		Description: "cinema",
		Date:        NewDate(2024, time.March, 3),
	}

	if err := (Patch{}).Validate(); !errors.Is(err, ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}

	empty := ""
	if err := (Patch{Category: &empty}).Validate(); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}

	amount := decimal.RequireFromString("12.50")
	desc := "teatro"
	p := Patch{Amount: &amount, Description: &desc}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	got := p.Apply(base)
	if !got.Amount.Equal(amount) || got.Description != "teatro" {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.ID != base.ID || got.UserID != base.UserID || got.Category != base.Category || got.Date != base.Date {
		t.Fatalf("untouched fields changed: %+v", got)
	}
	if base.Description != "cinema" {
		t.Fatal("Apply must not mutate its input")
	}
}
