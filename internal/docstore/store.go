// Package docstore maintains the single active study document across the
// chunk store and the search index.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hyperjump/askthebook/internal/chunker"
	"github.com/hyperjump/askthebook/internal/models"
	"github.com/hyperjump/askthebook/internal/search"
	"github.com/hyperjump/askthebook/internal/storage"
	"go.uber.org/zap"
)

// ErrNoChunks is returned when a document yields no chunks, e.g. a
// scanned-image PDF with no extractable text. The user must upload a
// different file.
var ErrNoChunks = errors.New("could not extract text from this document")

// Store enforces the single-active-document policy: at most one filename's
// chunks exist at any time, and starting a new ingest clears every previously
// stored chunk first. All mutation is serialized behind one mutex so
// concurrent ingests cannot interleave their clear and add steps.
type Store struct {
	mu      sync.Mutex
	storage storage.Storage
	index   search.Index
	chunker *chunker.Chunker
	logger  *zap.Logger
}

// New creates a Store over the given chunk storage and search index.
func New(st storage.Storage, idx search.Index, ch *chunker.Chunker, logger *zap.Logger) *Store {
	return &Store{storage: st, index: idx, chunker: ch, logger: logger}
}

// Ingest replaces the active document with filename's text. The previous
// document (whatever its name) is cleared before the new chunks are added;
// there is no rollback, so a clear that succeeds followed by an add that
// fails leaves the store empty. Returns ErrNoChunks when text produces zero
// chunks; the store has already been cleared at that point, matching
// replace-on-upload semantics.
func (s *Store) Ingest(ctx context.Context, filename, text string) (*models.IngestResult, error) {
	safe := filepath.Base(filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clearLocked(ctx); err != nil {
		return nil, fmt.Errorf("clear active document: %w", err)
	}

	chunks := s.chunker.Chunk(safe, text)
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	if err := s.storage.BatchCreateChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	if err := s.index.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	s.logger.Info("document ingested",
		zap.String("filename", safe),
		zap.Int("chunks", len(chunks)))

	return &models.IngestResult{
		Status:     "success",
		ChunkCount: len(chunks),
		Filename:   safe,
	}, nil
}

// clearLocked removes every stored chunk from both the index and the chunk
// store. Idempotent when the store is already empty. Caller holds s.mu.
func (s *Store) clearLocked(ctx context.Context) error {
	ids, err := s.storage.AllChunkIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.index.Delete(ctx, ids); err != nil {
		return err
	}
	if err := s.storage.DeleteAll(ctx); err != nil {
		return err
	}
	s.logger.Debug("active document cleared", zap.Int("chunks", len(ids)))
	return nil
}

// Query returns the top-k chunks ranked by relevance to text. k is clamped to
// the current chunk count, so asking for more results than exist is not an
// error. An empty store returns nil without touching the index.
func (s *Store) Query(ctx context.Context, text string, k int) ([]*models.RetrievedChunk, error) {
	count, err := s.storage.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	if int64(k) > count {
		k = int(count)
	}
	return s.index.Query(ctx, text, k)
}

// Delete removes every chunk whose source equals filename and reports whether
// anything was removed.
func (s *Store) Delete(ctx context.Context, filename string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.storage.ChunkIDsBySource(ctx, filename)
	if err != nil {
		return false, fmt.Errorf("look up chunks: %w", err)
	}
	if len(ids) == 0 {
		return false, nil
	}
	if err := s.index.Delete(ctx, ids); err != nil {
		return false, fmt.Errorf("deindex chunks: %w", err)
	}
	if _, err := s.storage.DeleteBySource(ctx, filename); err != nil {
		return false, fmt.Errorf("delete chunks: %w", err)
	}
	s.logger.Info("document deleted",
		zap.String("filename", filename),
		zap.Int("chunks", len(ids)))
	return true, nil
}

// IsEmpty reports whether no document is currently indexed. A storage error
// counts as empty so callers degrade to the "no documents" path rather than
// failing the request.
func (s *Store) IsEmpty(ctx context.Context) bool {
	count, err := s.storage.CountChunks(ctx)
	if err != nil {
		s.logger.Warn("count chunks failed, treating store as empty", zap.Error(err))
		return true
	}
	return count == 0
}

// ListSources returns the distinct filenames currently indexed.
func (s *Store) ListSources(ctx context.Context) ([]string, error) {
	return s.storage.ListSources(ctx)
}
