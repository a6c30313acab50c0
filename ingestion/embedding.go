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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/telemetry"
)

// embeddingProcessor embeds a batch of drafts and stores the resulting units.
type embeddingProcessor struct {
	units    storage.UnitRepository
	embedder ai.Embedder
	indexers map[core.Pool]Indexer
	metrics  *telemetry.Metrics
	logger   *slog.Logger
}

var _ batchProcessor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(units storage.UnitRepository, embedder ai.Embedder, indexers map[core.Pool]Indexer,
	metrics *telemetry.Metrics, logger *slog.Logger) (batchProcessor, error) {
	if units == nil {
		return nil, ErrUnitRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		units:    units,
		embedder: embedder,
		indexers: indexers,
		metrics:  metrics,
		logger:   logger.With("processor", "embeddings"),
	}, nil
}

// process generates embeddings for the drafts, stores them and indexes them.
func (ep *embeddingProcessor) process(ctx context.Context, drafts []Draft) ([]*core.ContentUnit, error) {
	units := make([]*core.ContentUnit, len(drafts))
	texts := make([]string, len(drafts))
	for i, draft := range drafts {
		unit, err := draft.unit()
		if err != nil {
			return nil, err
		}
		units[i] = unit
		texts[i] = unit.Text
	}

	ep.logger.Debug("generating embeddings for drafts", "drafts", len(texts))
	embeddings, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return nil, err
	}

	if len(embeddings) != len(units) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(units), len(embeddings))
	}

	for i := range embeddings {
		units[i].Vector = embeddings[i]
	}

	added, err := ep.units.AddUnits(ctx, units...)
	if err != nil {
		return nil, err
	}
	ep.metrics.RecordIngested(added...)

	var errs []error
	for _, unit := range added {
		indexer, ok := ep.indexers[unit.Pool()]
		if !ok {
			continue
		}
		if err := indexer.Insert(unit); err != nil {
			errs = append(errs, fmt.Errorf("index unit %s: %w", unit.Id, err))
		}
	}

	return added, errors.Join(errs...)
}
