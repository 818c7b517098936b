// Package store persists orders. Two backends implement the same interface:
// a JSON snapshot file and a SQLite database.
package store

import (
	"context"

	"limitswap/internal/domain"
)

// Txn is the view of the store inside a Mutate call. Get returns a private
// copy; changes only take effect through Put and only if the Mutate callback
// returns nil.
type Txn interface {
	Get(id int64) (*domain.Order, error)
	Put(o *domain.Order) error
	All() ([]*domain.Order, error)
}

// Store is the order persistence interface. Orders are never deleted; ids are
// assigned by the store, strictly increasing, and never reused.
type Store interface {
	// Create assigns the order a fresh id, persists it, and sets o.ID.
	Create(ctx context.Context, o *domain.Order) error

	// Get returns a copy of the order with the given id, or
	// domain.ErrOrderNotFound.
	Get(ctx context.Context, id int64) (*domain.Order, error)

	// List returns copies of all orders, sorted by id.
	List(ctx context.Context) ([]*domain.Order, error)

	// ListByStatus returns copies of all orders in the given status, sorted
	// by id.
	ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error)

	// Mutate runs fn against a transactional view. All Puts commit atomically
	// when fn returns nil; a non-nil error discards every change.
	Mutate(ctx context.Context, fn func(Txn) error) error

	Close() error
}
