package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, float32(1.0), cfg.Weight(core.PoolDocuments))
	assert.Equal(t, float32(0.7), cfg.Weight(core.PoolWeb))
	assert.Zero(t, cfg.Weight(core.Pool(0)))
	assert.Equal(t, 5, cfg.TopKPerPool)
	assert.Equal(t, float32(0.3), cfg.RelevanceThreshold)
	assert.Equal(t, 4000, cfg.MaxContextLength)
	assert.Equal(t, 8000, cfg.HardCap)
	assert.Equal(t, 10, cfg.MemoryWindow)
	assert.Equal(t, 2, cfg.ExpansionTurns)
	assert.Equal(t, 1000, cfg.AI.MaxTokens)
	assert.InDelta(t, 0.1, cfg.AI.Temperature, 1e-9)
	require.NoError(t, cfg.Validate())
}

func TestDefault_WebReachable(t *testing.T) {
	cfg := Default()
	// A perfect web match must clear the threshold.
	assert.GreaterOrEqual(t, cfg.PoolWeights.Web, cfg.RelevanceThreshold)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docent.yaml")
	content := `
pool_weights:
  web: 0.5
top_k_per_pool: 8
embed_timeout: 3s
ai:
  chat_model: llama3.1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), cfg.PoolWeights.Web)
	assert.Equal(t, float32(1.0), cfg.PoolWeights.Documents, "unset keys keep defaults")
	assert.Equal(t, 8, cfg.TopKPerPool)
	assert.Equal(t, 3*time.Second, cfg.EmbedTimeout)
	assert.Equal(t, "llama3.1", cfg.AI.ChatModel)
	assert.Equal(t, "embeddinggemma", cfg.AI.EmbeddingModel)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("top_k_per_pool: [1, 2"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "docent.yaml")
	cfg := Default()
	cfg.MemoryWindow = 4
	cfg.GenerateTimeout = 90 * time.Second

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TOP_K_RETRIEVAL":           "3",
		"MAX_CONTEXT_LENGTH":        "2000",
		"CONVERSATION_MEMORY_LIMIT": "6",
		"WEB_CONTENT_WEIGHT":        "0.6",
		"RELEVANCE_THRESHOLD":       "0.25",
		"EMBED_TIMEOUT":             "2s",
		"OPENAI_API_KEY":            "sk-test",
		"TEMPERATURE":               "0.4",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, 3, cfg.TopKPerPool)
	assert.Equal(t, 2000, cfg.MaxContextLength)
	assert.Equal(t, 6, cfg.MemoryWindow)
	assert.InDelta(t, 0.6, cfg.PoolWeights.Web, 1e-6)
	assert.InDelta(t, 0.25, cfg.RelevanceThreshold, 1e-6)
	assert.Equal(t, 2*time.Second, cfg.EmbedTimeout)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.InDelta(t, 0.4, cfg.AI.Temperature, 1e-9)
	assert.Equal(t, float32(1.0), cfg.PoolWeights.Documents)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	env := map[string]string{
		"TOP_K_RETRIEVAL": "five",
		"EMBED_TIMEOUT":   "soon",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	err := cfg.ApplyEnv(lookup)
	require.ErrorIs(t, err, ErrInvalidEnv)
	assert.Contains(t, err.Error(), "TOP_K_RETRIEVAL")
	assert.Contains(t, err.Error(), "EMBED_TIMEOUT")
	assert.Equal(t, 5, cfg.TopKPerPool, "invalid values leave the setting untouched")
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOCENT_TEST_DOTENV=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("DOCENT_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("DOCENT_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "zero top k", mutate: func(c *Config) { c.TopKPerPool = 0 }, wantErr: true},
		{name: "threshold above one", mutate: func(c *Config) { c.RelevanceThreshold = 1.5 }, wantErr: true},
		{name: "hard cap below budget", mutate: func(c *Config) { c.HardCap = 100 }, wantErr: true},
		{name: "zero web weight", mutate: func(c *Config) { c.PoolWeights.Web = 0 }, wantErr: true},
		{name: "zero memory window", mutate: func(c *Config) { c.MemoryWindow = 0 }, wantErr: true},
		{name: "too few max tokens", mutate: func(c *Config) { c.AI.MaxTokens = 10 }, wantErr: true},
		{name: "temperature too high", mutate: func(c *Config) { c.AI.Temperature = 3 }, wantErr: true},
		{name: "no expansion is fine", mutate: func(c *Config) { c.ExpansionTurns = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.TopKPerPool = 0
	cfg.MemoryWindow = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOP_K_RETRIEVAL")
	assert.Contains(t, err.Error(), "CONVERSATION_MEMORY_LIMIT")
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.AI.APIKey = "sk-secret"

	redacted := cfg.Redacted()
	assert.NotEqual(t, "sk-secret", redacted.AI.APIKey)
	assert.Equal(t, "sk-secret", cfg.AI.APIKey)
}
