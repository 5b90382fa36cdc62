// Package main is the AskTheBook CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/askthebook/internal/cache"
	"github.com/hyperjump/askthebook/internal/chunker"
	"github.com/hyperjump/askthebook/internal/config"
	"github.com/hyperjump/askthebook/internal/docstore"
	"github.com/hyperjump/askthebook/internal/extract"
	"github.com/hyperjump/askthebook/internal/llm"
	"github.com/hyperjump/askthebook/internal/models"
	"github.com/hyperjump/askthebook/internal/retrieval"
	"github.com/hyperjump/askthebook/internal/search"
	"github.com/hyperjump/askthebook/internal/server"
	"github.com/hyperjump/askthebook/internal/storage"
	"github.com/hyperjump/askthebook/internal/tutor"
	"github.com/hyperjump/askthebook/internal/watcher"
	"github.com/hyperjump/askthebook/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/askthebook/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "askthebook server" from the project dir uses the
// project's config (including debug). Returns the config and the path that was
// actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys may live in a .env next to the binary; absence is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "ask":
		runAsk()
	case "exam":
		runExam()
	case "documents":
		runDocuments()
	case "delete":
		runDelete()
	case "version", "--version", "-v":
		fmt.Printf("askthebook version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Directory != "" {
		extractor := components.Extractor
		store := components.Store
		watchSvc := watcher.New(cfg.Watch.Directory, cfg.Watch.Extensions,
			func(path string) {
				text, err := extractor.Extract(path)
				if err != nil {
					logger.Warn("drop-folder extract failed", zap.String("path", path), zap.Error(err))
					return
				}
				if _, err := store.Ingest(context.Background(), path, text); err != nil {
					logger.Warn("drop-folder ingest failed", zap.String("path", path), zap.Error(err))
				}
			}, logger)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Store,
		components.Extractor,
		components.Tutor,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Index     search.Index
	Store     *docstore.Store
	Extractor *extract.Extractor
	Tutor     *tutor.Service
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	index, err := search.NewBleveIndex(cfg.Storage.IndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize search index: %w", err)
	}

	docs := docstore.New(store, index,
		chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap), logger)
	retriever := retrieval.NewService(docs, cfg.Retrieval.TopK, cfg.Retrieval.ExamTopK, logger)

	responses := cache.New(cfg.Storage.CachePath, cfg.Cache.Capacity, cfg.Cache.EvictCount, logger)
	compressor := llm.NewCompressor(&cfg.Compression)
	generator := llm.NewGenerator(&cfg.Generation)
	pipeline := llm.NewPipeline(responses, compressor, generator, cfg.Compression.MinContextChars, logger)

	tut := tutor.NewService(docs, retriever, pipeline, logger)

	return &Components{
		Storage:   store,
		Index:     index,
		Store:     docs,
		Extractor: extract.NewExtractor(),
		Tutor:     tut,
	}, nil
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: askthebook upload [flags] <file.pdf|file.docx>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	contents, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := fw.Write(contents); err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	_ = mw.Close()

	resp, err := http.Post(*serverURL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Upload failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var result models.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Uploaded %s (%d chunks). It is now the active document.\n", result.Filename, result.ChunkCount)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	mode := fs.String("mode", "normal", "answer mode: normal, eli5, or socratic")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: askthebook ask [flags] <question>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Println("Usage: askthebook ask [flags] <question>")
		os.Exit(1)
	}

	body, _ := json.Marshal(models.ChatRequest{Query: query, Mode: *mode})
	resp, err := http.Post(*serverURL+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Ask failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var answer models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, s := range answer.Sources {
			fmt.Printf("  %s\n", s)
		}
	}
}

func runExam() {
	fs := flag.NewFlagSet("exam", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/exam")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Exam prediction failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var exam models.ExamResponse
	if err := json.NewDecoder(resp.Body).Decode(&exam); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(exam.Questions)
}

func runDocuments() {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/documents")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "List failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Documents []string `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if len(out.Documents) == 0 {
		fmt.Println("No documents indexed.")
		return
	}
	for _, d := range out.Documents {
		fmt.Println(d)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: askthebook delete [flags] <filename>")
		os.Exit(1)
	}
	filename := fs.Arg(0)

	req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/documents/"+filename, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Delete failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	fmt.Printf("Deleted: %s\n", filename)
}

func printUsage() {
	fmt.Println(`askthebook - Study assistant over your own documents

Usage:
  askthebook server [flags]            Start the HTTP server
  askthebook upload [flags] <file>     Upload a PDF or DOCX as the active document
  askthebook ask [flags] <question>    Ask a question about the active document
  askthebook exam [flags]              Predict likely exam questions
  askthebook documents [flags]         List indexed documents
  askthebook delete [flags] <file>     Delete a document by filename
  askthebook version                   Show version
  askthebook help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/askthebook/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --server string    Server URL (default: http://localhost:8080)
  --mode string      Answer mode: normal, eli5, or socratic (default: normal)

Upload / Exam / Documents / Delete Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  askthebook server
  askthebook upload lecture-notes.pdf
  askthebook ask what is cellular respiration
  askthebook ask --mode eli5 "what is cellular respiration"
  askthebook exam
  askthebook documents
  askthebook delete lecture-notes.pdf`)
}
