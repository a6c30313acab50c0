// Package config holds the engine's tunables and loads them from
// defaults, an optional YAML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/docent/core"
	"gopkg.in/yaml.v3"
)

// PoolWeights scales raw similarity per pool.
type PoolWeights struct {
	Documents float32 `yaml:"documents"`
	Web       float32 `yaml:"web"`
}

// AIConfig selects the OpenAI-compatible endpoint and models.
type AIConfig struct {
	Host           string  `yaml:"host"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	APIKey         string  `yaml:"api_key,omitempty"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
}

// Config is the full set of engine settings. Treat it as immutable once
// handed to a constructor.
type Config struct {
	DatabasePath string `yaml:"database_path"`
	LogLevel     string `yaml:"log_level"`

	PoolWeights        PoolWeights `yaml:"pool_weights"`
	TopKPerPool        int         `yaml:"top_k_per_pool"`
	RelevanceThreshold float32     `yaml:"relevance_threshold"`
	ExpansionTurns     int         `yaml:"expansion_turns"`
	DedupeThreshold    float64     `yaml:"dedupe_threshold"`
	ShingleSize        int         `yaml:"shingle_size"`

	MaxContextLength int `yaml:"max_context_length"`
	HardCap          int `yaml:"hard_cap"`

	MemoryWindow       int           `yaml:"memory_window"`
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`

	EmbedTimeout    time.Duration `yaml:"embed_timeout"`
	GenerateTimeout time.Duration `yaml:"generate_timeout"`

	AI AIConfig `yaml:"ai"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		DatabasePath: "data/docent.db",
		LogLevel:     "info",
		PoolWeights: PoolWeights{
			Documents: 1.0,
			Web:       0.7,
		},
		TopKPerPool:        5,
		RelevanceThreshold: 0.3,
		ExpansionTurns:     2,
		DedupeThreshold:    0.8,
		ShingleSize:        3,
		MaxContextLength:   4000,
		HardCap:            8000,
		MemoryWindow:       10,
		SessionIdleTimeout: 30 * time.Minute,
		EmbedTimeout:       10 * time.Second,
		GenerateTimeout:    60 * time.Second,
		AI: AIConfig{
			Host:           "http://localhost:11434/v1",
			EmbeddingModel: "embeddinggemma",
			ChatModel:      "qwen2.5:3b",
			MaxTokens:      1000,
			Temperature:    0.1,
		},
	}
}

// Weight returns the weight of a pool; unknown pools weigh nothing.
func (c *Config) Weight(pool core.Pool) float32 {
	switch pool {
	case core.PoolDocuments:
		return c.PoolWeights.Documents
	case core.PoolWeb:
		return c.PoolWeights.Web
	default:
		return 0
	}
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
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

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	clone := *c
	if clone.AI.APIKey != "" {
		clone.AI.APIKey = "********"
	}
	return &clone
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.PoolWeights.Documents > 0, "documents pool weight must be positive")
	check(c.PoolWeights.Web > 0, "web pool weight must be positive")
	check(c.TopKPerPool >= 1, "TOP_K_RETRIEVAL must be at least 1")
	check(c.RelevanceThreshold >= 0 && c.RelevanceThreshold <= 1, "RELEVANCE_THRESHOLD must be between 0 and 1")
	check(c.ExpansionTurns >= 0, "expansion turns cannot be negative")
	check(c.DedupeThreshold > 0 && c.DedupeThreshold <= 1, "dedupe threshold must be in (0,1]")
	check(c.ShingleSize >= 1, "shingle size must be at least 1")
	check(c.MaxContextLength >= 1, "MAX_CONTEXT_LENGTH must be at least 1")
	check(c.HardCap >= c.MaxContextLength, "hard cap %d is below MAX_CONTEXT_LENGTH %d", c.HardCap, c.MaxContextLength)
	check(c.MemoryWindow >= 1, "CONVERSATION_MEMORY_LIMIT must be at least 1")
	check(c.SessionIdleTimeout >= 0, "session idle timeout cannot be negative")
	check(c.EmbedTimeout > 0, "embed timeout must be positive")
	check(c.GenerateTimeout > 0, "generate timeout must be positive")
	check(c.AI.Host != "", "AI host is required")
	check(c.AI.EmbeddingModel != "", "EMBEDDING_MODEL is required")
	check(c.AI.ChatModel != "", "PRIMARY_MODEL is required")
	check(c.AI.MaxTokens >= 100, "MAX_TOKENS must be at least 100")
	check(c.AI.Temperature >= 0 && c.AI.Temperature <= 2, "TEMPERATURE must be between 0.0 and 2.0")

	return errors.Join(errs...)
}
