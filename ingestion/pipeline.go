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
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/telemetry"
)

// DefaultBatchSize is the number of drafts embedded per request.
const DefaultBatchSize = 32

// Indexer makes stored units searchable. *index.Index implements it.
type Indexer interface {
	Pool() core.Pool
	Insert(unit *core.ContentUnit) error
}

// Report summarizes one Ingest call.
type Report struct {
	Stored   int
	Failed   int
	Duration time.Duration
}

// batchProcessor stores one batch of drafts and returns the stored units.
type batchProcessor interface {
	process(ctx context.Context, drafts []Draft) ([]*core.ContentUnit, error)
}

// Pipeline orchestrates the embedding and storage of content units.
// Batches are processed concurrently on a worker pool.
type Pipeline struct {
	units         storage.UnitRepository
	embeddingPool *ants.Pool
	embeddingProc batchProcessor
	indexers      map[core.Pool]Indexer
	batchSize     int
	metrics       *telemetry.Metrics
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		embeddingPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = embeddingPool
		return nil
	}
}

// WithBatchSize sets how many drafts are embedded per request.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.batchSize = size
		return nil
	}
}

// WithIndexers inserts stored units into the index serving their pool.
func WithIndexers(indexers ...Indexer) Option {
	return func(p *Pipeline) error {
		for _, indexer := range indexers {
			p.indexers[indexer.Pool()] = indexer
		}
		return nil
	}
}

// WithMetrics records ingested units. A nil value disables recording.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = metrics
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(units storage.UnitRepository, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if units == nil {
		return nil, ErrUnitRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	embeddingPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		units:         units,
		embeddingPool: embeddingPool,
		indexers:      make(map[core.Pool]Indexer),
		batchSize:     DefaultBatchSize,
		logger:        slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Create processor after options are applied (so it gets final config)
	embeddingProc, err := newEmbeddingProcessor(units, embedder, p.indexers, p.metrics, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = embeddingProc

	return p, nil
}

// Ingest splits, embeds, stores and indexes drafts, blocking until every
// batch is done. Units stored by successful batches are kept even when
// other batches fail.
func (p *Pipeline) Ingest(ctx context.Context, drafts []Draft) (*Report, error) {
	start := time.Now()
	drafts = Split(drafts, core.MaxUnitTextLength)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errs   []error
		report = &Report{}
	)

	for offset := 0; offset < len(drafts); offset += p.batchSize {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			report.Failed += len(drafts) - offset
			errs = append(errs, err)
			mu.Unlock()
			break
		}

		batch := drafts[offset:min(offset+p.batchSize, len(drafts))]
		wg.Add(1)
		err := p.embeddingPool.Submit(func() {
			defer wg.Done()
			added, err := p.embeddingProc.process(ctx, batch)

			mu.Lock()
			defer mu.Unlock()
			report.Stored += len(added)
			if err != nil {
				p.logger.Error("error processing batch", "offset", offset, "size", len(batch), "err", err)
				if added == nil {
					report.Failed += len(batch)
				}
				errs = append(errs, fmt.Errorf("batch at %d: %w", offset, err))
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			report.Failed += len(batch)
			errs = append(errs, err)
			mu.Unlock()
		}
	}
	wg.Wait()

	report.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"stored", report.Stored,
		"failed", report.Failed,
		"elapsed", report.Duration)

	return report, errors.Join(errs...)
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
