package openai

import (
	"testing"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  Open the planner [1].\n", want: "Open the planner [1]."},
		{name: "answer prefix", in: "Answer: Use the Structure tab [2].", want: "Use the Structure tab [2]."},
		{name: "fenced", in: "```\nStep one.\n```", want: "Step one."},
		{name: "fenced with language", in: "```markdown\n1. Open it\n```", want: "1. Open it"},
		{name: "empty", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanAnswer(tt.in))
		})
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	noMatch := buildSystemPrompt(&core.ContextPayload{Query: "q"})
	assert.Equal(t, noMatchSystemPrompt, noMatch)

	grounded := buildSystemPrompt(&core.ContextPayload{
		Query:    "q",
		Passages: []core.Passage{{UnitId: 1, Text: "t", Locator: "a.pdf"}},
	})
	assert.Contains(t, grounded, "square brackets")
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	cfg := ai.DefaultConfig()
	cfg.ChatModel = ""

	_, err := NewProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ChatModel")
}

func TestNewProvider_BuildsServices(t *testing.T) {
	provider, err := NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")))
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.NotNil(t, provider.Generator())
}
