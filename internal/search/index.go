// Package search provides the relevance-search capability over indexed chunks.
//
// The engine itself is opaque to the rest of the system: callers see only the
// Index interface. The Bleve implementation is the production engine; the
// memory implementation backs tests.
package search

import (
	"context"

	"github.com/hyperjump/askthebook/internal/models"
)

// Index defines relevance search over document chunks.
type Index interface {
	// Add indexes the given chunks. Chunk IDs ("{source}_{index}") are the
	// index item identifiers.
	Add(ctx context.Context, chunks []*models.Chunk) error
	// Query returns up to k chunks ranked by relevance to text.
	Query(ctx context.Context, text string, k int) ([]*models.RetrievedChunk, error)
	// Delete removes the chunks with the given IDs.
	Delete(ctx context.Context, ids []string) error
	// Count returns the number of indexed chunks.
	Count() (uint64, error)
	Close() error
}
