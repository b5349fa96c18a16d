// This file implements parsing of request bodies and query parameters into
// ledger types. Bodies may be JSON or form-encoded, so HTMX forms and JSON
// clients share the same handlers.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"savings/internal/core"
)

const maxBodyBytes = 64 << 10

var ErrInvalidMonth = errors.New("month must be between 1 and 12")

// ParseMonthParams reads year and month from the query, defaulting to the
// month containing now.
func ParseMonthParams(query url.Values, now time.Time) (int, time.Month, error) {
	year, month := now.Year(), now.Month()
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
		year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonth, v)
		}
		month = time.Month(m)
	}
	return year, month, nil
}

// RequestBodyParser reads a JSON or form-encoded body once. JSON numbers keep
// their exact text so amounts are never routed through float64.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = map[string]any{}
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON body: %w", err)
		}
		return p.err
	}
	p.formData, p.err = url.ParseQuery(string(trimmed))
	return p.err
}

// Has reports whether key was sent with a non-null value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns the sanitized string form of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		return sanitizeInput(stringValue(p.jsonData[key]))
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims whitespace and strips control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseTransaction builds a new transaction from the body. A missing date is
// left zero for the ledger to default.
func parseTransaction(p *RequestBodyParser) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Type:        typ,
		Amount:      amount,
		Category:    p.Get("category"),
		Description: p.Get("description"),
	}
	if v := p.Get("date"); v != "" {
		if t.Date, err = core.ParseDate(v); err != nil {
			return core.Transaction{}, err
		}
	}
	return t, nil
}

// parsePatch builds a partial update from the fields present in the body.
func parsePatch(p *RequestBodyParser) (core.Patch, error) {
	var patch core.Patch
	if p.Has("type") {
		typ, err := core.ParseTransactionType(p.Get("type"))
		if err != nil {
			return core.Patch{}, err
		}
		patch.Type = &typ
	}
	if p.Has("amount") {
		amount, err := core.ParseAmount(p.Get("amount"))
		if err != nil {
			return core.Patch{}, err
		}
		patch.Amount = &amount
	}
	if p.Has("category") {
		c := p.Get("category")
		patch.Category = &c
	}
	if p.Has("description") {
		d := p.Get("description")
		patch.Description = &d
	}
	if p.Has("date") {
		d, err := core.ParseDate(p.Get("date"))
		if err != nil {
			return core.Patch{}, err
		}
		patch.Date = &d
	}
	return patch, nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
