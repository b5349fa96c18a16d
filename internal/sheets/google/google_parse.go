package google

import (
	"fmt"
	"strings"

	"savings/internal/core"
)

func formatRow(t core.Transaction) []any {
	return []any{t.ID, t.UserID, string(t.Type), t.Amount.String(), t.Category, t.Description, t.Date.String()}
}

// parseRow converts a values row (as returned by Sheets API) into a Transaction.
// Amounts may come back with a decimal comma depending on the sheet locale.
func parseRow(values []any) (core.Transaction, error) {
	cols := toStrings(values)
	if len(cols) < len(header) {
		return core.Transaction{}, fmt.Errorf("expected %d columns, got %d", len(header), len(cols))
	}
	if cols[0] == "" {
		return core.Transaction{}, fmt.Errorf("missing id")
	}
	typ, err := core.ParseTransactionType(cols[2])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(cols[3])
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := core.ParseDate(cols[6])
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          cols[0],
		UserID:      cols[1],
		Type:        typ,
		Amount:      amount,
		Category:    cols[4],
		Description: cols[5],
		Date:        date,
	}, nil
}

func isHeader(values []any) bool {
	cols := toStrings(values)
	return len(cols) > 0 && strings.EqualFold(cols[0], "id")
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
