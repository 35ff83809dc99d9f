package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Chat      ChatConfig      `yaml:"chat"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Docs      DocsConfig      `yaml:"docs"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	// AdminKey guards the ingest endpoint. Empty disables it.
	AdminKey string `yaml:"-"` // env-only, never in YAML
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ChatConfig contains answer-generation model settings.
// BaseURL allows pointing the OpenAI-compatible client at another
// provider's endpoint.
type ChatConfig struct {
	APIKey  string `yaml:"-"` // env-only, never in YAML
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig contains embedding service settings.
type EmbeddingConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
	Model  string `yaml:"model"`
}

// RetrievalConfig contains chunking and search settings.
type RetrievalConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	MaxResults   int `yaml:"max_results"`
	MaxHistory   int `yaml:"max_history"`
}

// DocsConfig contains course document ingestion settings.
type DocsConfig struct {
	Dir            string `yaml:"dir"`
	IngestOnStart  bool   `yaml:"ingest_on_start"`
	ClearOnStartup bool   `yaml:"clear_on_startup"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// A .env file in the working directory is read first so local secrets
// reach the environment without shell setup. Returns an immutable Config
// suitable for concurrent read access.
func Load() (*Config, error) {
	// Missing .env is the normal production case
	_ = godotenv.Load(".env")

	cfg := newDefaults()

	configPath := getEnv("COURSEPILOT_CONFIG_PATH", "config/coursepilot.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/coursepilot.db",
		},
		Chat: ChatConfig{
			Model: "gpt-4o",
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Retrieval: RetrievalConfig{
			ChunkSize:    800,
			ChunkOverlap: 100,
			MaxResults:   5,
			MaxHistory:   2,
		},
		Docs: DocsConfig{
			Dir:           "docs",
			IngestOnStart: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("COURSEPILOT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("COURSEPILOT_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("COURSEPILOT_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("COURSEPILOT_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}
	if v := os.Getenv("COURSEPILOT_ADMIN_API_KEY"); v != "" {
		cfg.Server.AdminKey = v
	}

	// Database
	if v := os.Getenv("COURSEPILOT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Chat (OPENAI_API_KEY is industry convention; COURSEPILOT_CHAT_API_KEY
	// wins when both are set so the two services can use different keys)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("COURSEPILOT_CHAT_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("COURSEPILOT_CHAT_MODEL"); v != "" {
		cfg.Chat.Model = v
	}
	if v := os.Getenv("COURSEPILOT_CHAT_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}

	// Embedding
	if v := os.Getenv("COURSEPILOT_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("COURSEPILOT_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	// Retrieval
	if v := os.Getenv("COURSEPILOT_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.ChunkSize = n
		}
	}
	if v := os.Getenv("COURSEPILOT_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.ChunkOverlap = n
		}
	}
	if v := os.Getenv("COURSEPILOT_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.MaxResults = n
		}
	}
	if v := os.Getenv("COURSEPILOT_MAX_HISTORY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.MaxHistory = n
		}
	}

	// Docs
	if v := os.Getenv("COURSEPILOT_DOCS_DIR"); v != "" {
		cfg.Docs.Dir = v
	}
	if v := os.Getenv("COURSEPILOT_INGEST_ON_START"); v != "" {
		cfg.Docs.IngestOnStart = v == "true" || v == "1"
	}

	// Log
	if v := os.Getenv("COURSEPILOT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("COURSEPILOT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks that required configuration values are set.
// In dev mode (COURSEPILOT_DEV_MODE=true), API key validation is skipped.
func (c *Config) validate() error {
	if os.Getenv("COURSEPILOT_DEV_MODE") == "true" {
		return nil
	}

	if c.Chat.APIKey == "" {
		return errors.New("OPENAI_API_KEY or COURSEPILOT_CHAT_API_KEY is required")
	}
	if c.Embedding.APIKey == "" {
		return errors.New("OPENAI_API_KEY or COURSEPILOT_EMBEDDING_API_KEY is required")
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
