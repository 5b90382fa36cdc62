package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// buildDocx assembles a minimal .docx zip with the given document.xml body.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	ct, err := zw.Create("[Content_Types].xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = ct.Write([]byte(`<Types><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`))
	doc, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = doc.Write([]byte(documentXML))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	content := buildDocx(t, `<w:document><w:body>`+
		`<w:p w:rsidR="00A"><w:r><w:t>First </w:t></w:r><w:r><w:t xml:space="preserve">paragraph.</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>`+
		`</w:body></w:document>`)

	e := NewExtractor()
	got, err := e.ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "First paragraph.\nSecond paragraph." {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxNotZip(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("not a zip"), ".docx"); err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestExtractBytes_unsupportedExtensions(t *testing.T) {
	e := NewExtractor()
	for _, ext := range []string{".txt", ".xlsx", ".pptx", ".md", ""} {
		_, err := e.ExtractBytes([]byte("content"), ext)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ext %q: err = %v, want ErrUnsupportedFormat", ext, err)
		}
	}
}

func TestExtract_docxFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.docx")
	content := buildDocx(t, `<w:document><w:body><w:p><w:r><w:t>File content</w:t></w:r></w:p></w:body></w:document>`)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	e := NewExtractor()
	got, err := e.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	e := NewExtractor()
	if _, err := e.Extract("/nonexistent/path/file.pdf"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".pdf", true},
		{".PDF", true},
		{".docx", true},
		{".doc", false},
		{".txt", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.ext); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}
