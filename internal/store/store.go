// Package store persists the registry of bulbs the client has seen:
// address, name and the last observed state snapshot.
package store

import "errors"

// ErrNotFound is returned when a requested bulb does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface.
type Store interface {
	SaveBulb(rec *Bulb) error
	GetBulb(address string) (*Bulb, error)
	DeleteBulb(address string) error
	ListBulbs() ([]*Bulb, error)

	// UpdateBulb atomically reads, modifies, and saves a bulb in a single
	// transaction. Returns ErrNotFound if the bulb does not exist.
	UpdateBulb(address string, fn func(rec *Bulb) error) error

	// Close the store
	Close() error
}
