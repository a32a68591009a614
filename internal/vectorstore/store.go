// internal/vectorstore/store.go

// Package vectorstore persists employee records as (vector, text, department,
// metadata) entries and answers exact-filter and approximate-nearest-neighbor
// queries over them.
package vectorstore

import (
	"context"
	"encoding/json"
)

// Entry is one stored employee embedding. Metadata carries the full serialized
// record; Department duplicates the record's department for filtering.
type Entry struct {
	Key        string
	Vector     []float32
	Text       string
	Department string
	Metadata   json.RawMessage
}

// Store is the vector index contract. The pipeline only reads; Put exists for
// the ingestion collaborator and for tests.
type Store interface {
	// EnsureIndex creates the index schema if it does not exist yet. The
	// dimension is fixed for the lifetime of an index generation.
	EnsureIndex(ctx context.Context, dimension int) error

	// Put upserts a single entry. Implementations create the index lazily on
	// first write.
	Put(ctx context.Context, entry Entry) error

	// QueryByFilter returns every entry whose department matches exactly.
	QueryByFilter(ctx context.Context, department string) ([]Entry, error)

	// KNN returns up to k entries for the department ordered by cosine
	// similarity to the query vector, best first.
	KNN(ctx context.Context, department string, vector []float32, k int) ([]Entry, error)
}
