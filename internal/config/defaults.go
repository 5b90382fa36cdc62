package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 20 * 1024 * 1024
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/askthebook/data/chunks.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/askthebook/data/index"
	}
	if cfg.Storage.CachePath == "" {
		cfg.Storage.CachePath = "/usr/local/var/askthebook/data/response_cache.json"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.ExamTopK == 0 {
		cfg.Retrieval.ExamTopK = 5
	}
	if cfg.Cache.Capacity == 0 {
		cfg.Cache.Capacity = 500
	}
	if cfg.Cache.EvictCount == 0 {
		cfg.Cache.EvictCount = 50
	}
	if cfg.Compression.URL == "" {
		cfg.Compression.URL = "https://api.scaledown.xyz/compress/raw/"
	}
	if cfg.Compression.APIKeyEnv == "" {
		cfg.Compression.APIKeyEnv = "SCALEDOWN_API_KEY"
	}
	if cfg.Compression.Model == "" {
		cfg.Compression.Model = "gpt-4o"
	}
	if cfg.Compression.TimeoutSecs == 0 {
		cfg.Compression.TimeoutSecs = 60
	}
	if cfg.Compression.MinContextChars == 0 {
		cfg.Compression.MinContextChars = 500
	}
	if cfg.Generation.URL == "" {
		cfg.Generation.URL = "https://api.groq.com/openai/v1/chat/completions"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Generation.SystemMessage == "" {
		cfg.Generation.SystemMessage = "You are a helpful educational AI assistant."
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = 120
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".docx"}
	}
}
