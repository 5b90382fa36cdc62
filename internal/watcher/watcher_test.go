package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// collect records ingested paths and signals each arrival.
type collect struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newCollect() *collect {
	return &collect{ch: make(chan string, 8)}
}

func (c *collect) ingest(path string) {
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	c.ch <- path
}

func (c *collect) wait(t *testing.T) string {
	t.Helper()
	select {
	case p := <-c.ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ingest")
		return ""
	}
}

func (c *collect) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

func startWatcher(t *testing.T, dir string, exts []string, c *collect) *Watcher {
	t.Helper()
	w := New(dir, exts, c.ingest, zap.NewNop())
	w.debounce = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_IngestsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	c := newCollect()
	startWatcher(t, dir, []string{".pdf", ".docx"}, c)

	path := filepath.Join(dir, "notes.docx")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := c.wait(t); got != path {
		t.Errorf("ingested %q, want %q", got, path)
	}
}

func TestWatcher_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	c := newCollect()
	startWatcher(t, dir, []string{".pdf"}, c)

	if err := os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	pdf := filepath.Join(dir, "keep.pdf")
	if err := os.WriteFile(pdf, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if got := c.wait(t); got != pdf {
		t.Errorf("ingested %q, want %q", got, pdf)
	}
	if c.count() != 1 {
		t.Errorf("ingest count = %d, want 1 (txt must be filtered)", c.count())
	}
}

func TestWatcher_DebouncesRepeatedWrites(t *testing.T) {
	dir := t.TempDir()
	c := newCollect()
	startWatcher(t, dir, nil, c)

	path := filepath.Join(dir, "big.pdf")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("chunk"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	c.wait(t)
	// Settle past another debounce window; no second ingest should land.
	time.Sleep(150 * time.Millisecond)
	if c.count() != 1 {
		t.Errorf("ingest count = %d, want 1", c.count())
	}
}

func TestWatcher_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	c := newCollect()
	startWatcher(t, dir, nil, c)

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("drop directory not created: %v", err)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	c := newCollect()
	w := startWatcher(t, dir, nil, c)
	w.Stop()
	w.Stop()
}
