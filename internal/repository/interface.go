package repository

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a record does not exist in a collection.
var ErrNotFound = errors.New("record not found")

// Record is a JSON-compatible document. The store assigns the "id" key.
type Record map[string]any

// ID returns the record identity, or "" when unassigned.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Filter selects records whose fields equal the given values. Keys may
// address nested fields with dots, e.g. "metadata.status".
type Filter map[string]any

// Order sorts query results by a field path.
type Order struct {
	Field string
	Desc  bool
}

// Path splits the field into its nested segments.
func (o Order) Path() []string {
	return strings.Split(o.Field, ".")
}

// Range pages query results.
type Range struct {
	Offset int
	Limit  int
}

// DocumentStore is a generic store of JSON records grouped into
// collections. It offers no transaction or batch semantics.
type DocumentStore interface {
	// Insert stores a new record and returns it with its assigned id.
	Insert(ctx context.Context, collection string, record Record) (Record, error)
	// GetByID retrieves a record, or ErrNotFound.
	GetByID(ctx context.Context, collection, id string) (Record, error)
	// Update replaces a record wholesale, or returns ErrNotFound.
	Update(ctx context.Context, collection, id string, record Record) (Record, error)
	// Delete removes a record, or returns ErrNotFound.
	Delete(ctx context.Context, collection, id string) error
	// Query returns matching records, in insertion order unless order is set.
	Query(ctx context.Context, collection string, filter Filter, order *Order, rng *Range) ([]Record, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
}
