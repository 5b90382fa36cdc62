// Package retrieval assembles citation-annotated context from the active document.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/askthebook/internal/models"
	"go.uber.org/zap"
)

// ExamQuery is the synthetic breadth query used for exam-question prediction.
// A bag of high-signal study words biases retrieval toward overview chunks
// rather than any one topic.
const ExamQuery = "important concepts key terms definitions summary conclusion"

// Store is the document access the service needs.
type Store interface {
	Query(ctx context.Context, text string, k int) ([]*models.RetrievedChunk, error)
	IsEmpty(ctx context.Context) bool
}

// Service retrieves the chunks most relevant to a question and builds the
// labeled context string handed to the generation pipeline.
type Service struct {
	store    Store
	topK     int
	examTopK int
	logger   *zap.Logger
}

// NewService creates a retrieval service. topK is used for chat retrieval,
// examTopK for the breadth query.
func NewService(store Store, topK, examTopK int, logger *zap.Logger) *Service {
	return &Service{store: store, topK: topK, examTopK: examTopK, logger: logger}
}

// Retrieve returns the assembled context and deduplicated source labels for
// query. An empty store short-circuits to an empty result without issuing a
// search. Each retrieved chunk contributes one labeled block so the student
// can see exactly which part of the document backed the answer.
func (s *Service) Retrieve(ctx context.Context, query string, k int) (*models.RetrievalResult, error) {
	if s.store.IsEmpty(ctx) {
		return &models.RetrievalResult{}, nil
	}

	chunks, err := s.store.Query(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}

	var b strings.Builder
	sources := make([]string, 0, len(chunks))
	seen := make(map[string]bool, len(chunks))
	for _, ch := range chunks {
		fmt.Fprintf(&b, "Source (%s, chunk %d):\n%s\n\n", ch.Source, ch.Index, ch.Text)
		label := fmt.Sprintf("%s §%d", ch.Source, ch.Index)
		if !seen[label] {
			seen[label] = true
			sources = append(sources, label)
		}
	}

	s.logger.Debug("retrieved context",
		zap.Int("chunks", len(chunks)),
		zap.Int("context_chars", b.Len()))

	return &models.RetrievalResult{Context: b.String(), Sources: sources}, nil
}

// RetrieveForChat retrieves with the configured chat top-k.
func (s *Service) RetrieveForChat(ctx context.Context, query string) (*models.RetrievalResult, error) {
	return s.Retrieve(ctx, query, s.topK)
}

// RetrieveForExam retrieves with the fixed breadth query and the larger exam
// top-k.
func (s *Service) RetrieveForExam(ctx context.Context) (*models.RetrievalResult, error) {
	return s.Retrieve(ctx, ExamQuery, s.examTopK)
}
