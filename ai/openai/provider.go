// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/poiesic/docent/ai"
)

var _ ai.AIProvider = (*Provider)(nil)

// Provider serves embeddings and answers from OpenAI-compatible endpoints.
// Both services share one HTTP client so connections to a common host are
// reused.
type Provider struct {
	config     *ai.Config
	httpClient *http.Client
	embedder   *Embedder
	generator  *Generator
	closed     atomic.Bool
	logger     *slog.Logger
}

// NewProvider validates config and builds the embedder and generator.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	httpClient := &http.Client{}
	embedder, err := newEmbedder(config, httpClient)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(config, httpClient)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("provider ready",
		"embedding_host", config.EmbeddingHost,
		"embedding_model", config.EmbeddingModel,
		"chat_host", config.ChatHost,
		"chat_model", config.ChatModel)

	return &Provider{
		config:     config,
		httpClient: httpClient,
		embedder:   embedder,
		generator:  generator,
		logger:     logger,
	}, nil
}

// Embedder returns the query and passage embedder.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the answer generator.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Close drops idle connections. Calls after the first are no-ops.
func (p *Provider) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.httpClient.CloseIdleConnections()
		p.logger.Debug("closed OpenAI provider")
	}
	return nil
}
