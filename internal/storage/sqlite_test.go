package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/askthebook/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedChunks(t *testing.T, s *SQLiteStorage, source string, n int) {
	t.Helper()
	chunks := make([]*models.Chunk, n)
	for i := range chunks {
		chunks[i] = &models.Chunk{Source: source, Index: i, Text: "text"}
	}
	if err := s.BatchCreateChunks(context.Background(), chunks); err != nil {
		t.Fatalf("BatchCreateChunks: %v", err)
	}
}

func TestSQLiteStorage_roundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	seedChunks(t, s, "a.pdf", 3)
	seedChunks(t, s, "b.docx", 2)

	count, err := s.CountChunks(ctx)
	if err != nil {
		t.Fatalf("CountChunks: %v", err)
	}
	if count != 5 {
		t.Errorf("CountChunks = %d, want 5", count)
	}

	sources, err := s.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 2 || sources[0] != "a.pdf" || sources[1] != "b.docx" {
		t.Errorf("ListSources = %v", sources)
	}

	ids, err := s.ChunkIDsBySource(ctx, "a.pdf")
	if err != nil {
		t.Fatalf("ChunkIDsBySource: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a.pdf_0" || ids[2] != "a.pdf_2" {
		t.Errorf("ChunkIDsBySource = %v", ids)
	}

	all, err := s.AllChunkIDs(ctx)
	if err != nil {
		t.Fatalf("AllChunkIDs: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("AllChunkIDs len = %d, want 5", len(all))
	}
}

func TestSQLiteStorage_deleteBySource(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seedChunks(t, s, "a.pdf", 3)

	n, err := s.DeleteBySource(ctx, "a.pdf")
	if err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d, want 3", n)
	}

	n, err = s.DeleteBySource(ctx, "missing.pdf")
	if err != nil {
		t.Fatalf("DeleteBySource missing: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted %d for missing source, want 0", n)
	}
}

func TestSQLiteStorage_deleteAll(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	seedChunks(t, s, "a.pdf", 4)

	if err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	count, err := s.CountChunks(ctx)
	if err != nil {
		t.Fatalf("CountChunks: %v", err)
	}
	if count != 0 {
		t.Errorf("CountChunks after DeleteAll = %d", count)
	}
	// DeleteAll on an empty store is a no-op, not an error.
	if err := s.DeleteAll(ctx); err != nil {
		t.Errorf("DeleteAll on empty store: %v", err)
	}
}
