// Package config provides configuration loading and structs for the kura server.
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
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Source     SourceConfig     `yaml:"source"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// ReloadTimeout bounds a rebuild triggered over HTTP. The rebuild outlives the request.
	ReloadTimeout  time.Duration `yaml:"reload_timeout"`
}

// SourceConfig selects and configures the tabular record source.
type SourceConfig struct {
	// Type is one of csv, xlsx, s3, sqlite.
	Type   string       `yaml:"type"`
	Path   string       `yaml:"path"`
	Sheet  string       `yaml:"sheet"`
	Watch  bool         `yaml:"watch"`
	S3     S3Config     `yaml:"s3"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// S3Config holds object storage settings for the s3 source.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    *bool  `yaml:"use_ssl"`
	// Format is csv or xlsx; derived from the key extension when empty.
	Format string `yaml:"format"`
}

// UseSSLOrDefault returns whether to use TLS; defaults to true when unset.
func (s *S3Config) UseSSLOrDefault() bool {
	if s.UseSSL != nil {
		return *s.UseSSL
	}
	return true
}

// SQLiteConfig holds settings for the sqlite source.
type SQLiteConfig struct {
	Path  string `yaml:"path"`
	Query string `yaml:"query"`
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	// Provider is one of mock, http, onnx, hugot.
	Provider          string        `yaml:"provider"`
	ModelPath         string        `yaml:"model_path"`
	ModelName         string        `yaml:"model_name"`
	Dimensions        int           `yaml:"dimensions"`
	MaxTokens         int           `yaml:"max_tokens"`
	CacheSize         int           `yaml:"cache_size"`
	Endpoint          string        `yaml:"endpoint"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	BatchSize         int           `yaml:"batch_size"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// RetrievalConfig holds chunking and top-k settings.
type RetrievalConfig struct {
	TopK         int           `yaml:"top_k"`
	MaxTopK      int           `yaml:"max_top_k"`
	ChunkSize    int           `yaml:"chunk_size"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// GenerationConfig holds generation service settings.
type GenerationConfig struct {
	// Provider is openai or none.
	Provider       string        `yaml:"provider"`
	Endpoint       string        `yaml:"endpoint"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	MaxNewTokens   int           `yaml:"max_new_tokens"`
	Temperature    float64       `yaml:"temperature"`
	TopP           float64       `yaml:"top_p"`
	Timeout        time.Duration `yaml:"timeout"`
	SystemPrompt   string        `yaml:"system_prompt"`
	FallbackPrompt string        `yaml:"fallback_prompt"`
}

// Load reads and parses the config file at path, expands ${VAR} references and paths,
// and applies defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Source.Path = expandPath(cfg.Source.Path, configDir)
	cfg.Source.SQLite.Path = expandPath(cfg.Source.SQLite.Path, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
