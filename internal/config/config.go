// Package config provides configuration loading and structs for the AskTheBook server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Cache       CacheConfig       `yaml:"cache"`
	Compression CompressionConfig `yaml:"compression"`
	Generation  GenerationConfig  `yaml:"generation"`
	Watch       WatchConfig       `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// StorageConfig holds paths for the chunk database, search index, and cache snapshot.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexPath    string `yaml:"index_path"`
	CachePath    string `yaml:"cache_path"`
}

// ChunkingConfig holds sliding-window chunking settings (in characters).
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig holds top-k settings for chat and exam retrieval.
type RetrievalConfig struct {
	TopK     int `yaml:"top_k"`
	ExamTopK int `yaml:"exam_top_k"`
}

// CacheConfig holds response cache capacity settings.
type CacheConfig struct {
	Capacity   int `yaml:"capacity"`
	EvictCount int `yaml:"evict_count"`
}

// CompressionConfig holds settings for the remote context-compression endpoint.
// The API key is resolved from the environment variable named by APIKeyEnv.
type CompressionConfig struct {
	URL             string `yaml:"url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	Model           string `yaml:"model"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
	MinContextChars int    `yaml:"min_context_chars"`
}

// APIKey returns the compression API key from the environment.
func (c *CompressionConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// Timeout returns the compression call timeout.
func (c *CompressionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// GenerationConfig holds settings for the remote answer-generation endpoint.
type GenerationConfig struct {
	URL           string `yaml:"url"`
	APIKeyEnv     string `yaml:"api_key_env"`
	Model         string `yaml:"model"`
	SystemMessage string `yaml:"system_message"`
	TimeoutSecs   int    `yaml:"timeout_secs"`
}

// APIKey returns the generation API key from the environment.
func (g *GenerationConfig) APIKey() string {
	return os.Getenv(g.APIKeyEnv)
}

// Timeout returns the generation call timeout.
func (g *GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// WatchConfig holds drop-folder auto-ingest settings. Watching is disabled
// when Directory is empty.
type WatchConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)
	cfg.Storage.CachePath = expandPath(cfg.Storage.CachePath, configDir)
	if cfg.Watch.Directory != "" {
		cfg.Watch.Directory = expandPath(cfg.Watch.Directory, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
