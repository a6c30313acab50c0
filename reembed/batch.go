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

package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// BatchProcessor regenerates embeddings for batches of content units.
type BatchProcessor struct {
	repo           storage.UnitRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
	normalize      bool
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
// normalize: scale new vectors to unit length
func NewBatchProcessor(repo storage.UnitRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration, normalize bool) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		normalize:      normalize,
	}
}

// Process embeds the units' text again and stores the new vectors.
// Unit IDs and every other field are preserved.
func (bp *BatchProcessor) Process(ctx context.Context, units []*core.ContentUnit) error {
	if len(units) == 0 {
		return nil
	}

	texts := make([]string, len(units))
	for i, unit := range units {
		texts[i] = unit.Text
	}

	embeddings, err := RetryWithBackoff(ctx, bp.maxRetries, bp.retryBaseDelay,
		func(ctx context.Context) ([][]float32, error) {
			return bp.embedder.EmbedTexts(ctx, texts)
		})
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(embeddings) != len(units) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(units), len(embeddings))
	}

	for i, unit := range units {
		if bp.normalize {
			unit.Vector = NormalizeVector(embeddings[i])
		} else {
			unit.Vector = embeddings[i]
		}
	}

	if _, err := bp.repo.UpdateUnits(ctx, units...); err != nil {
		return fmt.Errorf("failed to update units: %w", err)
	}

	return nil
}
