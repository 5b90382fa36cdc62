// Package tutor answers student questions and predicts exam questions from
// the active study document.
package tutor

import (
	"context"

	"github.com/hyperjump/askthebook/internal/models"
	"github.com/hyperjump/askthebook/internal/retrieval"
	"go.uber.org/zap"
)

// User-facing messages for the defined empty cases. These are answers, not
// errors: an empty store or an unmatched question is normal operation.
const (
	MsgNoDocuments     = "No documents are indexed yet. Please upload a PDF or DOCX file first."
	MsgNothingRelevant = "I couldn't find relevant information in your documents for that question."
	MsgNoDocumentsExam = "No documents indexed yet. Please upload a file first."
)

// Responder runs a request through the generation pipeline.
type Responder interface {
	Respond(ctx context.Context, query, mode, instruction, contextText string) (string, error)
}

// Retriever assembles context for a question.
type Retriever interface {
	RetrieveForChat(ctx context.Context, query string) (*models.RetrievalResult, error)
	RetrieveForExam(ctx context.Context) (*models.RetrievalResult, error)
}

// StoreState reports whether any document is indexed.
type StoreState interface {
	IsEmpty(ctx context.Context) bool
}

// Service answers questions in the configured mode and predicts exam
// questions, short-circuiting the defined empty cases before any remote call.
type Service struct {
	store     StoreState
	retriever Retriever
	pipeline  Responder
	logger    *zap.Logger
}

// NewService creates a tutor service.
func NewService(store StoreState, retriever Retriever, pipeline Responder, logger *zap.Logger) *Service {
	return &Service{store: store, retriever: retriever, pipeline: pipeline, logger: logger}
}

// Answer answers query in the given mode. An empty store or an empty
// retrieval yields the corresponding defined message with no remote call.
func (s *Service) Answer(ctx context.Context, query, mode string) (*models.ChatResponse, error) {
	if s.store.IsEmpty(ctx) {
		return &models.ChatResponse{Answer: MsgNoDocuments, Sources: []string{}}, nil
	}

	res, err := s.retriever.RetrieveForChat(ctx, query)
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		return &models.ChatResponse{Answer: MsgNothingRelevant, Sources: []string{}}, nil
	}

	mode = normalizeMode(mode)
	answer, err := s.pipeline.Respond(ctx, query, mode, instructionFor(mode, query), res.Context)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("question answered",
		zap.String("mode", mode),
		zap.Int("sources", len(res.Sources)))
	return &models.ChatResponse{Answer: answer, Sources: res.Sources}, nil
}

// ExamQuestions predicts likely exam questions from a breadth retrieval over
// the active document.
func (s *Service) ExamQuestions(ctx context.Context) (string, error) {
	if s.store.IsEmpty(ctx) {
		return MsgNoDocumentsExam, nil
	}

	res, err := s.retriever.RetrieveForExam(ctx)
	if err != nil {
		return "", err
	}
	if res.Empty() {
		return MsgNothingRelevant, nil
	}
	return s.pipeline.Respond(ctx, retrieval.ExamQuery, modeExam, examPrompt, res.Context)
}
