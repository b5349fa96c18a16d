package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the summed expense amount of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthlySummary is the income/expense picture of one calendar month.
type MonthlySummary struct {
	Year         int             `json:"year"`
	Month        time.Month      `json:"month"` // 1-12
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
}

// Balance sums income minus expenses over txs.
func Balance(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		switch t.Type {
		case Income:
			total = total.Add(t.Amount)
		case Expense:
			total = total.Sub(t.Amount)
		}
	}
	return total
}

// Monthly filters txs to the given calendar month, keeping their order.
func Monthly(txs []Transaction, year int, month time.Month) MonthlySummary {
	s := MonthlySummary{
		Year:         year,
		Month:        month,
		Income:       decimal.Zero,
		Expenses:     decimal.Zero,
		Transactions: []Transaction{},
	}
	for _, t := range txs {
		if !t.Date.In(year, month) {
			continue
		}
		s.Transactions = append(s.Transactions, t)
		switch t.Type {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expenses = s.Expenses.Add(t.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expenses)
	return s
}

// Breakdown groups expense amounts by exact category label. Groups are returned
// in order of first appearance; income never contributes.
func Breakdown(txs []Transaction) []CategoryTotal {
	index := map[string]int{}
	out := []CategoryTotal{}
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, CategoryTotal{Category: t.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}
