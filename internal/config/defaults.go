package config

import "time"

const (
	defaultSystemPrompt = `You are an assistant answering questions from a tabular knowledge base.
Use the provided context to answer accurately. If no relevant entry is found, say so clearly.`
	defaultFallbackPrompt = "You are a helpful assistant. Answer from general knowledge and say that no matching entry was found in the knowledge base."
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 180 * time.Second
	}
	if cfg.Server.ReloadTimeout <= 0 {
		cfg.Server.ReloadTimeout = 10 * time.Minute
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = "csv"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.Concurrency == 0 {
		cfg.Embedding.Concurrency = 4
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MaxTopK <= 0 {
		cfg.Retrieval.MaxTopK = 50
	}
	if cfg.Retrieval.ChunkSize <= 0 {
		cfg.Retrieval.ChunkSize = 500
	}
	if cfg.Retrieval.QueryTimeout == 0 {
		cfg.Retrieval.QueryTimeout = 10 * time.Second
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "none"
	}
	if cfg.Generation.MaxNewTokens == 0 {
		cfg.Generation.MaxNewTokens = 512
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.7
	}
	if cfg.Generation.TopP == 0 {
		cfg.Generation.TopP = 0.9
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 120 * time.Second
	}
	if cfg.Generation.SystemPrompt == "" {
		cfg.Generation.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Generation.FallbackPrompt == "" {
		cfg.Generation.FallbackPrompt = defaultFallbackPrompt
	}
}
