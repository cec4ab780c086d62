// Package store defines the event store contract the engine mirrors.
package store

import (
	"context"
	"errors"

	"blockcal/internal/model"
)

// ErrNotFound is returned when an id does not exist in the store.
var ErrNotFound = errors.New("event not found")

// Stored pairs a store-assigned id with its wire record.
type Stored struct {
	ID     string            `json:"id"`
	Record model.EventRecord `json:"record"`
}

// Store is the remote event collection the engine keeps a mirror of.
// Implementations own persistence and id assignment; the engine owns the
// cached mirror and all representation normalization.
type Store interface {
	// FetchAll returns the full event collection.
	FetchAll(ctx context.Context) ([]Stored, error)

	// Create persists a new record and returns its assigned id.
	Create(ctx context.Context, rec model.EventRecord) (string, error)

	// Update replaces the record stored under id.
	Update(ctx context.Context, id string, rec model.EventRecord) error

	// Delete removes the record stored under id.
	Delete(ctx context.Context, id string) error
}
