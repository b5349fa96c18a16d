// Package google stores transactions in a Google Sheets spreadsheet.
//
// The sheet holds one transaction per row in columns A:G
// (id, user_id, type, amount, category, description, date); row 1 is a header.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"savings/internal/core"
	"savings/internal/store"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Transactions"

var header = []any{"id", "user_id", "type", "amount", "category", "description", "date"}

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serializes row-addressed writes; row numbers shift on delete.
	mu      sync.Mutex
	sheetID *int64
}

// Ensure interface conformance
var _ store.Store = (*Client)(nil)

// New creates a Sheets client using Service Account credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// newSheetsService initializes a Sheets Service from inline JSON, a file, or
// GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// List returns the user's rows sorted by date, most recent first.
func (c *Client) List(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []core.Transaction{}
	for _, r := range rows {
		if r.tx.UserID == userID {
			out = append(out, r.tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (c *Client) Insert(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validation failed: %w", err)
	}
	t.ID = uuid.NewString()

	vr := &gsheet.ValueRange{Values: [][]any{formatRow(t)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:G", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	return t, nil
}

func (c *Client) Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validation failed: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.find(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	next := p.Apply(r.tx)
	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, r.number, r.number)
	vr := &gsheet.ValueRange{Values: [][]any{formatRow(next)}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update %s: %w", rng, err)
	}
	return next, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.find(ctx, id)
	if err != nil {
		return err
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(r.number - 1),
			EndIndex:   int64(r.number),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", r.number, c.sheetName, err)
	}
	return nil
}

// Upsert writes t under its own id, replacing the existing row or appending a new one.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) error {
	if t.ID == "" {
		return fmt.Errorf("upsert: missing transaction id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.find(ctx, t.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		vr := &gsheet.ValueRange{Values: [][]any{formatRow(t)}}
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:G", vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
		}
		return nil
	case err != nil:
		return err
	}
	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, r.number, r.number)
	vr := &gsheet.ValueRange{Values: [][]any{formatRow(t)}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

type row struct {
	number int // 1-based sheet row
	tx     core.Transaction
}

func (c *Client) readAll(ctx context.Context) ([]row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.sheetName + "!A:G"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []row
	for i, values := range resp.Values {
		if i == 0 && isHeader(values) {
			continue
		}
		t, err := parseRow(values)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed sheet row", "sheet", c.sheetName, "row", i+1, "error", err)
			continue
		}
		out = append(out, row{number: i + 1, tx: t})
	}
	return out, nil
}

func (c *Client) find(ctx context.Context, id string) (row, error) {
	rows, err := c.readAll(ctx)
	if err != nil {
		return row{}, err
	}
	for _, r := range rows {
		if r.tx.ID == id {
			return r, nil
		}
	}
	return row{}, store.ErrNotFound
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

// EnsureHeader writes the header row when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	rng := c.sheetName + "!A1:G1"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}
