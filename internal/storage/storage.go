// Package storage defines the persistence interface for document chunks.
package storage

import (
	"context"

	"github.com/hyperjump/askthebook/internal/models"
)

// Storage is the system of record for the active document's chunks. The
// search index answers relevance queries; this store answers everything
// bookkeeping: which sources exist, how many chunks, which IDs to delete.
type Storage interface {
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	ChunkIDsBySource(ctx context.Context, source string) ([]string, error)
	AllChunkIDs(ctx context.Context) ([]string, error)
	DeleteBySource(ctx context.Context, source string) (int64, error)
	DeleteAll(ctx context.Context) error
	// ListSources returns the distinct source filenames currently stored.
	ListSources(ctx context.Context) ([]string, error)
	CountChunks(ctx context.Context) (int64, error)
	Close() error
}
