package store

import (
	"context"
	"errors"

	"savings/internal/core"
)

// ErrNotFound is returned when a transaction id does not exist in the store.
var ErrNotFound = errors.New("transaction not found")

// Ports for the Remote Store adapters.
type (
	// Lister returns every transaction owned by userID, most recent date first.
	Lister interface {
		List(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	// Writer persists mutations and returns the stored record.
	// Insert assigns the id; Update and Delete return ErrNotFound for unknown ids.
	Writer interface {
		Insert(ctx context.Context, t core.Transaction) (core.Transaction, error)
		Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error)
		Delete(ctx context.Context, id string) error
	}

	Store interface {
		Lister
		Writer
	}
)
