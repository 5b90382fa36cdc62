// Package chunker splits document text into overlapping fixed-width windows.
package chunker

import (
	"github.com/hyperjump/askthebook/internal/models"
)

// Chunker produces fixed-width overlapping character windows. It holds no
// state across calls; chunking the same text twice yields identical chunks.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker with the given window size and overlap, both in
// characters. Overlap must satisfy 0 <= overlap < size; out-of-range values
// are clamped so the window always advances.
func New(size, overlap int) *Chunker {
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into windows [start, start+size), advancing by
// size-overlap, so consecutive chunks share exactly overlap characters except
// possibly the final one. Every character of text lands in at least one
// chunk. Returns nil for empty text; the caller must treat zero chunks as an
// ingest failure (no extractable text). Window offsets are in runes, matching
// the documented chunk boundaries for multi-byte text.
func (c *Chunker) Chunk(filename, text string) []*models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.size - c.overlap
	chunks := make([]*models.Chunk, 0, (len(runes)+step-1)/step)
	for start, i := 0, 0; start < len(runes); start, i = start+step, i+1 {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, &models.Chunk{
			Source: filename,
			Index:  i,
			Text:   string(runes[start:end]),
		})
	}
	return chunks
}
