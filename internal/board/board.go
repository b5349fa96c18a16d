// Package board tracks the bill status of expense transactions across the
// planned, paid and overdue columns. Placement lives only as long as the session.
package board

import (
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"savings/internal/core"
)

type Column string

const (
	Planned Column = "planned"
	Paid    Column = "paid"
	Overdue Column = "overdue"
)

// Order is the display order of the columns.
var Order = []Column{Planned, Paid, Overdue}

var (
	ErrUnknownColumn = errors.New("unknown board column")
	ErrUnknownCard   = errors.New("card not on board")
)

func ParseColumn(s string) (Column, error) {
	c := Column(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, s)
	}
	return c, nil
}

func (c Column) Valid() bool {
	return c == Planned || c == Paid || c == Overdue
}

// Name is the column title shown to the user.
func (c Column) Name() string {
	switch c {
	case Planned:
		return "Planned"
	case Paid:
		return "Paid"
	case Overdue:
		return "Overdue"
	}
	return string(c)
}

type Card struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        core.Date       `json:"date"`
}

type ColumnView struct {
	Column Column `json:"column"`
	Name   string `json:"name"`
	Cards  []Card `json:"cards"`
}

// Move describes a completed card move.
type Move struct {
	Card  Card   `json:"card"`
	From  Column `json:"from"`
	To    Column `json:"to"`
	Index int    `json:"index"`
}

// Changed reports whether the card moved to another column.
func (m Move) Changed() bool { return m.From != m.To }

type Board struct {
	mu      sync.Mutex
	columns map[Column][]Card
}

func New() *Board {
	b := &Board{columns: make(map[Column][]Card, len(Order))}
	for _, c := range Order {
		b.columns[c] = []Card{}
	}
	return b
}

func cardOf(t core.Transaction) Card {
	return Card{
		ID:          t.ID,
		Description: t.Description,
		Category:    t.Category,
		Amount:      t.Amount,
		Date:        t.Date,
	}
}

// Sync reconciles the board with txs. Every expense appears exactly once: cards
// already placed keep their column and position with refreshed details, new
// expenses are appended to Planned and cards without a matching expense are
// dropped.
func (b *Board) Sync(txs []core.Transaction) {
	expenses := make(map[string]core.Transaction, len(txs))
	for _, t := range txs {
		if t.Type == core.Expense {
			expenses[t.ID] = t
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	placed := make(map[string]bool, len(expenses))
	for _, c := range Order {
		kept := b.columns[c][:0]
		for _, card := range b.columns[c] {
			t, ok := expenses[card.ID]
			if !ok || placed[card.ID] {
				continue
			}
			placed[card.ID] = true
			kept = append(kept, cardOf(t))
		}
		b.columns[c] = kept
	}
	for _, t := range txs {
		if t.Type != core.Expense || placed[t.ID] {
			continue
		}
		placed[t.ID] = true
		b.columns[Planned] = append(b.columns[Planned], cardOf(t))
	}
}

// Move places card id at index in column to. The index is clamped to the
// column bounds, so a negative index means the top and a large one the bottom.
func (b *Board) Move(id string, to Column, index int) (Move, error) {
	if !to.Valid() {
		return Move{}, fmt.Errorf("%w: %q", ErrUnknownColumn, to)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	from, pos := b.find(id)
	if pos < 0 {
		return Move{}, ErrUnknownCard
	}
	src := b.columns[from]
	card := src[pos]
	b.columns[from] = append(src[:pos:pos], src[pos+1:]...)

	dst := b.columns[to]
	if index < 0 {
		index = 0
	}
	if index > len(dst) {
		index = len(dst)
	}
	out := make([]Card, 0, len(dst)+1)
	out = append(out, dst[:index]...)
	out = append(out, card)
	out = append(out, dst[index:]...)
	b.columns[to] = out

	return Move{Card: card, From: from, To: to, Index: index}, nil
}

func (b *Board) find(id string) (Column, int) {
	for _, c := range Order {
		for i, card := range b.columns[c] {
			if card.ID == id {
				return c, i
			}
		}
	}
	return "", -1
}

// Columns returns a snapshot of every column in display order.
func (b *Board) Columns() []ColumnView {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ColumnView, 0, len(Order))
	for _, c := range Order {
		out = append(out, ColumnView{
			Column: c,
			Name:   c.Name(),
			Cards:  append([]Card{}, b.columns[c]...),
		})
	}
	return out
}

// Reset empties every column.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range Order {
		b.columns[c] = []Card{}
	}
}
