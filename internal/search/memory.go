package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/askthebook/internal/models"
)

// MemoryIndex is an in-memory Index using brute-force term-overlap scoring.
// Suitable for tests; ranking quality is not comparable to the Bleve engine.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string]*models.Chunk
	order  []string
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{chunks: make(map[string]*models.Chunk)}
}

// Add stores chunks keyed by chunk ID.
func (m *MemoryIndex) Add(ctx context.Context, chunks []*models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range chunks {
		id := ch.ID()
		if _, exists := m.chunks[id]; !exists {
			m.order = append(m.order, id)
		}
		c := *ch
		m.chunks[id] = &c
	}
	return nil
}

// Query scores each chunk by the number of shared lowercase terms with text
// and returns the top k. Ties keep insertion order so results are stable.
func (m *MemoryIndex) Query(ctx context.Context, text string, k int) ([]*models.RetrievedChunk, error) {
	terms := strings.Fields(strings.ToLower(text))
	m.mu.RLock()
	defer m.mu.RUnlock()
	type scored struct {
		id    string
		score float64
	}
	scores := make([]scored, 0, len(m.order))
	for _, id := range m.order {
		ch := m.chunks[id]
		content := strings.ToLower(ch.Text)
		var score float64
		for _, term := range terms {
			if strings.Contains(content, term) {
				score++
			}
		}
		scores = append(scores, scored{id: id, score: score})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]*models.RetrievedChunk, 0, k)
	for i := 0; i < k; i++ {
		ch := m.chunks[scores[i].id]
		out = append(out, &models.RetrievedChunk{Chunk: *ch, Score: scores[i].score})
	}
	return out, nil
}

// Delete removes chunks by ID.
func (m *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.chunks[id]; ok {
			delete(m.chunks, id)
			removed[id] = true
		}
	}
	order := m.order[:0]
	for _, id := range m.order {
		if !removed[id] {
			order = append(order, id)
		}
	}
	m.order = order
	return nil
}

// Count returns the number of indexed chunks.
func (m *MemoryIndex) Count() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.chunks)), nil
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
