// Package config loads docsearch settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names
const (
	EnvDatabaseDir       = "RAG_DATABASE_DIR"
	EnvDatabaseFile      = "RAG_DATABASE_FILE"
	EnvVectorFile        = "RAG_VECTOR_FILE"
	EnvIndexName         = "RAG_INDEX_NAME"
	EnvEmbeddingProvider = "RAG_EMBEDDING_PROVIDER"
	EnvEmbeddingModel    = "RAG_EMBEDDING_MODEL"
	EnvTopK              = "RAG_TOP_K"
	EnvPoolSize          = "RAG_POOL_SIZE"
	EnvLogLevel          = "RAG_LOG_LEVEL"
)

// Defaults
const (
	DefaultBaseDir      = "data"
	DefaultDatabaseFile = "metadata.db"
	DefaultVectorFile   = "vectors.db"
	DefaultIndexName    = "documents_index"
	DefaultProvider     = "local"
	DefaultTopK         = 30
	DefaultPoolSize     = 4
	DefaultCacheSize    = 10000
	DefaultLogLevel     = "info"
)

// EmbeddingConfig selects the embedding provider
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	CacheSize int    `yaml:"cache_size"`
}

// Config is the root application configuration
type Config struct {
	BaseDir      string          `yaml:"base_dir"`
	DatabaseFile string          `yaml:"database_file"`
	VectorFile   string          `yaml:"vector_file"`
	IndexName    string          `yaml:"index_name"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	TopK         int             `yaml:"top_k"`
	PoolSize     int             `yaml:"pool_size"`
	LogLevel     string          `yaml:"log_level"`
}

// Default returns a config with every field at its default
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path (a missing file yields defaults), then
// overlays a .env file from the working directory and the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories as needed
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// MetadataPath is the relational store database file
func (c *Config) MetadataPath() string {
	return filepath.Join(c.BaseDir, c.DatabaseFile)
}

// VectorPath is the vector index database file
func (c *Config) VectorPath() string {
	return filepath.Join(c.BaseDir, c.VectorFile)
}

// EnsureDirs creates the base directory
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.BaseDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.BaseDir, EnvDatabaseDir)
	setString(&cfg.DatabaseFile, EnvDatabaseFile)
	setString(&cfg.VectorFile, EnvVectorFile)
	setString(&cfg.IndexName, EnvIndexName)
	setString(&cfg.Embedding.Provider, EnvEmbeddingProvider)
	setString(&cfg.Embedding.Model, EnvEmbeddingModel)
	setString(&cfg.LogLevel, EnvLogLevel)

	if err := setInt(&cfg.TopK, EnvTopK); err != nil {
		return err
	}
	return setInt(&cfg.PoolSize, EnvPoolSize)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = DefaultBaseDir
	}
	if cfg.DatabaseFile == "" {
		cfg.DatabaseFile = DefaultDatabaseFile
	}
	if cfg.VectorFile == "" {
		cfg.VectorFile = DefaultVectorFile
	}
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultProvider
	}
	if cfg.Embedding.CacheSize <= 0 {
		cfg.Embedding.CacheSize = DefaultCacheSize
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}
