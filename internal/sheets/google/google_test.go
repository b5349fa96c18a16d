package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets is a minimal in-memory stand-in for the Sheets v4 values API.
type fakeSheets struct {
	mu   sync.Mutex
	rows [][]any
}

var rowRange = regexp.MustCompile(`!A(\d+):G(\d+)$`)

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	switch {
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, q := range req.Requests {
			d := q.DeleteDimension.Range
			f.rows = append(f.rows[:d.StartIndex], f.rows[d.EndIndex:]...)
		}
		json.NewEncoder(w).Encode(gsheet.BatchUpdateSpreadsheetResponse{})
	case !strings.Contains(path, "/values/"):
		json.NewEncoder(w).Encode(gsheet.Spreadsheet{Sheets: []*gsheet.Sheet{
			{Properties: &gsheet.SheetProperties{SheetId: 42, Title: "Transactions"}},
		}})
	case strings.HasSuffix(path, ":append"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(f.rows, vr.Values...)
		json.NewEncoder(w).Encode(gsheet.AppendValuesResponse{})
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		m := rowRange.FindStringSubmatch(path)
		n, _ := strconv.Atoi(m[1])
		for len(f.rows) < n {
			f.rows = append(f.rows, []any{})
		}
		f.rows[n-1] = vr.Values[0]
		json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{})
	default:
		values := f.rows
		if strings.HasSuffix(path, "!A1:G1") && len(values) > 1 {
			values = values[:1]
		}
		json.NewEncoder(w).Encode(gsheet.ValueRange{Values: values})
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "")
}

func expense(user, date, amount string) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{
		UserID:      user,
		Type:        core.Expense,
		Amount:      decimal.RequireFromString(amount),
		Category:    "Internet",
		Description: "fibra",
		Date:        d,
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientInsertAndList(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	if err := c.EnsureHeader(ctx); err != nil {
		t.Fatalf("header: %v", err)
	}
	older, err := c.Insert(ctx, expense("u1", "2024-01-05", "49.90"))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := c.Insert(ctx, expense("u1", "2024-02-05", "10")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := c.Insert(ctx, expense("u2", "2024-03-05", "1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	// malformed rows are skipped
	fake.mu.Lock()
	fake.rows = append(fake.rows, []any{"bad", "u1", "gift", "x", "c", "d", "2024-01-01"})
	fake.mu.Unlock()

	got, err := c.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(got), got)
	}
	if got[0].Date.String() != "2024-02-05" || got[1].ID != older.ID {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].Amount.String() != "49.9" {
		t.Fatalf("unexpected amount %s", got[1].Amount)
	}
}

func TestClientUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{rows: [][]any{header}}
	c := newTestClient(t, fake)

	a, _ := c.Insert(ctx, expense("u1", "2024-01-05", "5"))
	b, _ := c.Insert(ctx, expense("u1", "2024-01-06", "6"))

	desc := "fibra 1Gb"
	updated, err := c.Update(ctx, b.ID, core.Patch{Description: &desc})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != desc || updated.ID != b.ID {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if err := c.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := c.List(ctx, "u1")
	if len(got) != 1 || got[0].ID != b.ID || got[0].Description != desc {
		t.Fatalf("unexpected rows after delete: %+v", got)
	}

	if err := c.Delete(ctx, a.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Update(ctx, "missing", core.Patch{Description: &desc}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClientUpsertKeepsID(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheets{rows: [][]any{header}}
	c := newTestClient(t, fake)

	tx := expense("u1", "2024-01-05", "5")
	tx.ID = "fixed-id"
	if err := c.Upsert(ctx, tx); err != nil {
		t.Fatalf("upsert new: %v", err)
	}
	tx.Description = "fibra 1Gb"
	if err := c.Upsert(ctx, tx); err != nil {
		t.Fatalf("upsert existing: %v", err)
	}
	got, _ := c.List(ctx, "u1")
	if len(got) != 1 || got[0].ID != "fixed-id" || got[0].Description != "fibra 1Gb" {
		t.Fatalf("unexpected rows after upsert: %+v", got)
	}

	if err := c.Upsert(ctx, expense("u1", "2024-01-05", "5")); err == nil {
		t.Fatal("expected error for a row without id")
	}
}

func TestParseRow(t *testing.T) {
	tx, err := parseRow([]any{"id1", "u1", "Income", "1.234,5", "Salário", "pagamento", "2024-05-01"})
	if err == nil {
		t.Fatalf("expected thousands separator to be rejected, got %+v", tx)
	}
	tx, err = parseRow([]any{"id1", "u1", "Income", "1234,5", "Salário", "pagamento", "2024-05-01"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tx.Type != core.Income || tx.Amount.String() != "1234.5" {
		t.Fatalf("unexpected row %+v", tx)
	}
	if _, err := parseRow([]any{"id1", "u1"}); err == nil {
		t.Fatal("expected short row error")
	}
}
