package search

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/hyperjump/askthebook/internal/models"
)

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// opened and reused so the active document survives restarts. If the mapping
// changes in code, remove the index directory to force a re-ingest.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so question terms
	// match document words exactly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	sourceFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("source", sourceFieldMapping)
	chunkIDFieldMapping := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt("chunk_id", chunkIDFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Add indexes chunks in a single batch.
func (b *BleveIndex) Add(ctx context.Context, chunks []*models.Chunk) error {
	batch := b.index.NewBatch()
	for _, ch := range chunks {
		doc := map[string]interface{}{
			"source":   ch.Source,
			"chunk_id": ch.Index,
			"content":  ch.Text,
		}
		if err := batch.Index(ch.ID(), doc); err != nil {
			return fmt.Errorf("batch index %s: %w", ch.ID(), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Query runs a match query over chunk content and returns up to k ranked chunks.
func (b *BleveIndex) Query(ctx context.Context, text string, k int) ([]*models.RetrievedChunk, error) {
	q := bleve.NewMatchQuery(text)
	q.SetField("content")
	req := bleve.NewSearchRequest(q)
	req.Size = k
	req.Fields = []string{"source", "chunk_id", "content"}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*models.RetrievedChunk, 0, len(results.Hits))
	for _, hit := range results.Hits {
		rc := &models.RetrievedChunk{Score: hit.Score}
		if s, ok := hit.Fields["source"].(string); ok {
			rc.Source = s
		}
		if id, ok := hit.Fields["chunk_id"].(float64); ok {
			rc.Index = int(id)
		}
		if c, ok := hit.Fields["content"].(string); ok {
			rc.Text = c
		}
		out = append(out, rc)
	}
	return out, nil
}

// Delete removes chunks by ID in a single batch.
func (b *BleveIndex) Delete(ctx context.Context, ids []string) error {
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve delete failed: %w", err)
	}
	return nil
}

// Count returns the number of indexed chunks.
func (b *BleveIndex) Count() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
