// Package store defines the persistence contracts for memory entries:
// a durable Store with canonical-key dedup and keyword search, and a
// SemanticIndex for vector similarity lookups.
package store

import (
	"context"
	"errors"

	"github.com/nickybot/nicky-go/core"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("memory entry not found")

// ErrDuplicateKey is returned by Put when an entry with the same
// canonical key already exists for the profile. Callers on the write
// path may treat it as success; the retrieval pipeline never sees it.
var ErrDuplicateKey = errors.New("duplicate canonical key")

// SearchParams narrows a keyword search.
type SearchParams struct {
	ProfileID string
	Keywords  []string

	// Source restricts matches to entries with this provenance
	// (e.g. "podcast_transcript"). Empty means any.
	Source string

	Limit int
}

// Store is the durable backend for memory entries.
type Store interface {
	// Put inserts an entry, enforcing canonical-key uniqueness per
	// profile. A collision returns ErrDuplicateKey and leaves the
	// existing entry untouched.
	Put(ctx context.Context, e *core.MemoryEntry) error

	// Get fetches one entry by profile and id.
	Get(ctx context.Context, profileID, id string) (*core.MemoryEntry, error)

	// SearchKeywords returns ACTIVE entries matching any of the
	// keywords, most recent first.
	SearchKeywords(ctx context.Context, p SearchParams) ([]*core.MemoryEntry, error)

	// IncrementRetrieval bumps retrieval_count for the given entries.
	// Best-effort: lost updates under contention are acceptable.
	IncrementRetrieval(ctx context.Context, ids []string) error

	Close() error
}

// SemanticHit pairs an entry with its raw similarity from the index.
type SemanticHit struct {
	Entry      *core.MemoryEntry
	Similarity float64
}

// SemanticIndex is the vector similarity backend.
type SemanticIndex interface {
	// Index adds an entry with its embedding to the index.
	Index(ctx context.Context, e *core.MemoryEntry) error

	// Query returns up to limit entries nearest to the embedding,
	// highest similarity first.
	Query(ctx context.Context, profileID string, embedding []float32, limit int) ([]SemanticHit, error)
}
