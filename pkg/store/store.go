// Package store persists pages and simplifications as JSON documents
// behind a narrow key-value contract: get by id, upsert with
// merge-on-write. The core depends only on this contract and never on a
// store-specific query language; lookups are by deterministic id.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Collection names.
const (
	Pages           = "pages"
	Simplifications = "simplifications"
)

// Store is the document-store contract the service consumes.
type Store interface {
	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (map[string]any, error)

	// Upsert writes doc under id, shallow-merging its top-level keys into
	// any existing document. Last writer wins.
	Upsert(ctx context.Context, collection, id string, doc map[string]any) error

	// Close releases the underlying resources.
	Close() error
}
