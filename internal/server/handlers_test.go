package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/hyperjump/askthebook/internal/chunker"
	"github.com/hyperjump/askthebook/internal/config"
	"github.com/hyperjump/askthebook/internal/docstore"
	"github.com/hyperjump/askthebook/internal/extract"
	"github.com/hyperjump/askthebook/internal/models"
	"github.com/hyperjump/askthebook/internal/retrieval"
	"github.com/hyperjump/askthebook/internal/search"
	"github.com/hyperjump/askthebook/internal/storage"
	"github.com/hyperjump/askthebook/internal/tutor"
	"go.uber.org/zap"
)

// echoResponder answers with a fixed string and never calls out.
type echoResponder struct {
	answer string
	calls  int
}

func (e *echoResponder) Respond(ctx context.Context, query, mode, instruction, contextText string) (string, error) {
	e.calls++
	return e.answer, nil
}

func newTestServer(t *testing.T) (*Server, *echoResponder) {
	t.Helper()
	dir := t.TempDir()
	st, err := storage.NewSQLiteStorage(filepath.Join(dir, "chunks.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	logger := zap.NewNop()

	store := docstore.New(st, search.NewMemoryIndex(), chunker.New(1000, 200), logger)
	retriever := retrieval.NewService(store, 3, 5, logger)
	responder := &echoResponder{answer: "the answer"}
	tut := tutor.NewService(store, retriever, responder, logger)

	cfg := &config.ServerConfig{Host: "localhost", Port: 0, MaxUploadBytes: 1 << 20}
	return NewServer(store, extract.NewExtractor(), tut, cfg, logger), responder
}

// uploadDocx posts a minimal .docx with the given body text.
func uploadDocx(t *testing.T, srv *Server, filename, text string) *httptest.ResponseRecorder {
	t.Helper()
	var docx bytes.Buffer
	zw := zip.NewWriter(&docx)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(docx.Bytes())
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	return w
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleUpload(t *testing.T) {
	srv, _ := newTestServer(t)
	w := uploadDocx(t, srv, "notes.docx", "The cell is the basic unit of life.")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res models.IngestResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Filename != "notes.docx" || res.ChunkCount == 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestHandleUpload_unsupportedExtension(t *testing.T) {
	srv, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "notes.txt")
	_, _ = fw.Write([]byte("plain text"))
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleUpload_emptyDocumentRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	w := uploadDocx(t, srv, "empty.docx", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleListDocuments(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	var out struct {
		Documents []string `json:"documents"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Documents) != 0 {
		t.Errorf("documents = %v, want empty", out.Documents)
	}

	uploadDocx(t, srv, "a.docx", "content here")
	w = httptest.NewRecorder()
	srv.router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Documents) != 1 || out.Documents[0] != "a.docx" {
		t.Errorf("documents = %v, want [a.docx]", out.Documents)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	// Deleting with nothing indexed is 404.
	r := httptest.NewRequest(http.MethodDelete, "/api/documents/a.docx", nil)
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	uploadDocx(t, srv, "a.docx", "content")

	// Wrong filename is 404.
	w = httptest.NewRecorder()
	srv.router().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/documents/other.docx", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	srv.router().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/documents/a.docx", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
}

func TestHandleChat(t *testing.T) {
	srv, responder := newTestServer(t)

	// Empty store: defined message, no pipeline call.
	body, _ := json.Marshal(models.ChatRequest{Query: "what is a cell"})
	r := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp models.ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != tutor.MsgNoDocuments {
		t.Errorf("answer = %q, want the no-documents message", resp.Answer)
	}
	if responder.calls != 0 {
		t.Error("pipeline must not be called for an empty store")
	}

	uploadDocx(t, srv, "bio.docx", "The cell is the basic unit of life.")

	r = httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	w = httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "the answer" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) == 0 {
		t.Error("expected source labels")
	}
}

func TestHandleChat_badRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{oops"},
		{"empty query", `{"query":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			srv.router().ServeHTTP(w, r)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleExam(t *testing.T) {
	srv, _ := newTestServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/exam", nil)
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	var resp models.ExamResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Questions != tutor.MsgNoDocumentsExam {
		t.Errorf("questions = %q", resp.Questions)
	}

	uploadDocx(t, srv, "bio.docx", "Important concepts and key terms to remember.")
	w = httptest.NewRecorder()
	srv.router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/exam", nil))
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Questions != "the answer" {
		t.Errorf("questions = %q", resp.Questions)
	}
}
