// Package models defines core data structures for chunks, retrieval, and the chat API.
package models

import "fmt"

// Chunk is a fixed-width overlapping window of a document's text, the unit of
// indexing and retrieval. Chunks are produced only by the chunker and are
// immutable once produced; identity is (Source, Index).
type Chunk struct {
	Source string `json:"source"`
	Index  int    `json:"chunk_id"`
	Text   string `json:"text"`
}

// ID returns the chunk's index identifier, "{source}_{index}".
func (c *Chunk) ID() string {
	return fmt.Sprintf("%s_%d", c.Source, c.Index)
}

// RetrievedChunk is a chunk returned from a relevance query, with its rank score.
type RetrievedChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// IngestResult reports a completed ingest.
type IngestResult struct {
	Status     string `json:"status"`
	ChunkCount int    `json:"chunks_processed"`
	Filename   string `json:"filename"`
}
