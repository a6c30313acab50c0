package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v))
				return
			}
			*dst = f
		}
	}
	float32v := func(key string, dst *float32) {
		f := float64(*dst)
		float(key, &f)
		*dst = float32(f)
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidEnv, key, v))
				return
			}
			*dst = d
		}
	}

	str("DATA_DIRECTORY", &c.DatabasePath)
	str("LOG_LEVEL", &c.LogLevel)

	integer("TOP_K_RETRIEVAL", &c.TopKPerPool)
	integer("MAX_CONTEXT_LENGTH", &c.MaxContextLength)
	integer("CONTEXT_HARD_CAP", &c.HardCap)
	integer("CONVERSATION_MEMORY_LIMIT", &c.MemoryWindow)
	integer("QUERY_EXPANSION_TURNS", &c.ExpansionTurns)
	float32v("DOCUMENT_CONTENT_WEIGHT", &c.PoolWeights.Documents)
	float32v("WEB_CONTENT_WEIGHT", &c.PoolWeights.Web)
	float32v("RELEVANCE_THRESHOLD", &c.RelevanceThreshold)
	float("DEDUPE_THRESHOLD", &c.DedupeThreshold)
	duration("EMBED_TIMEOUT", &c.EmbedTimeout)
	duration("GENERATE_TIMEOUT", &c.GenerateTimeout)
	duration("SESSION_IDLE_TIMEOUT", &c.SessionIdleTimeout)

	str("AI_HOST", &c.AI.Host)
	str("EMBEDDING_MODEL", &c.AI.EmbeddingModel)
	str("PRIMARY_MODEL", &c.AI.ChatModel)
	str("OPENAI_API_KEY", &c.AI.APIKey)
	integer("MAX_TOKENS", &c.AI.MaxTokens)
	float("TEMPERATURE", &c.AI.Temperature)

	return errors.Join(errs...)
}

// Resolve loads .env, then the YAML file at path, then the environment,
// and validates the result.
func Resolve(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
