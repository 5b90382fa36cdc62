package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/askthebook/internal/docstore"
	"github.com/hyperjump/askthebook/internal/extract"
	"github.com/hyperjump/askthebook/internal/llm"
	"github.com/hyperjump/askthebook/internal/models"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sources == nil {
		sources = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"documents": sources})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// The cap covers the whole multipart body; anything larger fails the read
	// below rather than buffering an arbitrarily large upload.
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 20MB.")
			return
		}
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !extract.Supported(ext) {
		s.respondError(w, http.StatusBadRequest, "Only PDF and DOCX files are supported.")
		return
	}

	contents, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "File too large. Maximum size is 20MB.")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	text, err := s.extractor.ExtractBytes(contents, ext)
	if err != nil {
		s.logger.Error("extraction failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.store.Ingest(r.Context(), header.Filename, text)
	if err != nil {
		if errors.Is(err, docstore.ErrNoChunks) {
			s.respondError(w, http.StatusUnprocessableEntity,
				"Could not extract text from this document. It may be a scanned image.")
			return
		}
		s.logger.Error("ingest failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if s.store.IsEmpty(r.Context()) {
		s.respondError(w, http.StatusNotFound, "No documents found")
		return
	}
	removed, err := s.store.Delete(r.Context(), filename)
	if err != nil {
		s.logger.Error("deletion failed", zap.String("filename", filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !removed {
		s.respondError(w, http.StatusNotFound, "Document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Deleted " + filename,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	reqID := uuid.New().String()[:8]
	s.logger.Debug("chat request",
		zap.String("request_id", reqID),
		zap.String("mode", req.Mode))

	resp, err := s.tutor.Answer(r.Context(), req.Query, req.Mode)
	if err != nil {
		s.logger.Error("chat failed", zap.String("request_id", reqID), zap.Error(err))
		if errors.Is(err, llm.ErrGeneration) {
			s.respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExam(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.New().String()[:8]
	s.logger.Debug("exam request", zap.String("request_id", reqID))

	questions, err := s.tutor.ExamQuestions(r.Context())
	if err != nil {
		s.logger.Error("exam prediction failed", zap.String("request_id", reqID), zap.Error(err))
		if errors.Is(err, llm.ErrGeneration) {
			s.respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.ExamResponse{Questions: questions})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
