// Package history keeps a bounded, newest-first log of playground results.
//
// Every backend behaves the same way: Push puts an item at the front,
// replacing any older entry with the same id, and silently drops whatever
// falls beyond Capacity. Delete of an unknown id reports domain.ErrNotFound.
package history

import (
	"context"
	"errors"

	"playground/internal/domain"
)

// DefaultCapacity matches the number of entries the playground shows.
const DefaultCapacity = 50

// ErrMissingID is returned when a record without an id is pushed.
var ErrMissingID = errors.New("history: record id is required")

// Record is anything that can be stored in a Log.
type Record interface {
	RecordID() string
}

// Log is a bounded append log, newest first.
type Log[T Record] interface {
	Push(ctx context.Context, item T) error
	List(ctx context.Context) ([]T, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Capacity() int
}

func normalizeCapacity(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	return capacity
}

func notFound(id string) error {
	return &NotFoundError{ID: id}
}

// NotFoundError names the id that was not in the log.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return "history: item " + e.ID + " not found" }

func (e *NotFoundError) Unwrap() error { return domain.ErrNotFound }
