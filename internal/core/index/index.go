package index

import (
	"context"
	"strings"
)

// Entry is one stored record: the normalized document text, its embedding,
// and the flat metadata mapping keyed by JobDescription field names.
type Entry struct {
	ID        string            `json:"id"`
	Document  string            `json:"document"`
	Embedding []float32         `json:"embedding,omitempty"`
	Metadata  map[string]string `json:"metadata"`
}

// Filter restricts query results with predicates over the flat metadata.
// Equals requires exact field matches; Contains requires substring matches,
// which is how list-valued fields (newline-joined) are searched.
type Filter struct {
	Equals   map[string]string
	Contains map[string]string
}

// Match evaluates the filter against a flat metadata mapping.
func (f Filter) Match(meta map[string]string) bool {
	for k, v := range f.Equals {
		if meta[k] != v {
			return false
		}
	}
	for k, v := range f.Contains {
		if !strings.Contains(meta[k], v) {
			return false
		}
	}
	return true
}

// VectorIndex is the persistent store mapping job ids to (document text,
// embedding, flat metadata). It is the single source of truth for similarity
// search.
//
// Add rejects an existing id with core.ErrDuplicateID instead of silently
// overwriting, and rejects vectors of the wrong dimension with
// core.ErrDimensionMismatch. Get returns core.ErrNotFound for unknown ids.
// Query returns entries nearest-first; ties break by insertion order.
type VectorIndex interface {
	Add(ctx context.Context, e Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	Query(ctx context.Context, embedding []float32, f Filter, limit int) ([]Entry, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
