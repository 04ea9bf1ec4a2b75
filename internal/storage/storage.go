package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record exists for the key.
// Callers distinguish "absent" from I/O failure with errors.Is.
var ErrNotFound = errors.New("storage: key not found")

// Record pairs a key with its stored bytes. Enumerate returns records in
// ascending key-byte order so iteration order never depends on the adapter.
type Record struct {
	Key   string
	Value []byte
}

// Store is the persistence contract consumed by the event log.
//
// Save overwrites silently at this layer; write-once semantics are the event
// log's responsibility, enforced with an Exists probe under a partition lock
// before every Save. Delete exists for the adapters' own housekeeping and for
// tests; the event log never calls it for sealed events.
type Store interface {
	// Get returns the bytes stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Save stores value under key, overwriting any previous value.
	Save(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key has a stored value.
	Exists(ctx context.Context, key string) (bool, error)

	// Enumerate returns all records whose key starts with prefix, in
	// ascending key order.
	Enumerate(ctx context.Context, prefix string) ([]Record, error)

	// Close releases the adapter's resources.
	Close() error
}
