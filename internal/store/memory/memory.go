package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"savings/internal/core"
	"savings/internal/store"
)

// Store is an in-process Remote Store. Useful for local runs and tests.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
}

func New(seed ...core.Transaction) *Store {
	s := &Store{}
	for _, t := range seed {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.items = append(s.items, t)
	}
	return s
}

// List returns the user's transactions sorted by date, most recent first.
func (s *Store) List(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, t := range s.items {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

// Insert stores the transaction under a fresh id.
func (s *Store) Insert(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return t, nil
}

func (s *Store) Update(_ context.Context, id string, p core.Patch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items[i] = p.Apply(t)
			return s.items[i], nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// Upsert stores t under its own id, replacing any existing record.
func (s *Store) Upsert(_ context.Context, t core.Transaction) error {
	if t.ID == "" {
		return fmt.Errorf("upsert: missing transaction id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.items {
		if cur.ID == t.ID {
			s.items[i] = t
			return nil
		}
	}
	s.items = append(s.items, t)
	return nil
}

// Len reports how many transactions are stored across all users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
