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
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of units to embed per request
	BatchSize int

	// ReportInterval is how often to report progress (number of units)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Normalize scales new vectors to unit length
	Normalize bool

	// Pools limits the run to these pools; empty means every pool
	Pools []core.Pool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result counts the units reembedded per pool.
type Result struct {
	Units    map[core.Pool]int
	Duration time.Duration
}

// Reembedder orchestrates the reembedding of every stored content unit.
type Reembedder struct {
	repo      storage.UnitRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *UnitIterator
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.UnitRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay, config.Normalize),
		iterator:  NewUnitIterator(repo, config.BatchSize),
		logger:    slog.Default().With("component", "reembed"),
	}
}

// Run reembeds every unit of the configured pools. Progress is reported
// to the configured writer. Indices built from the old vectors are stale
// once Run returns and must be rebuilt.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	pools := r.config.Pools
	if len(pools) == 0 {
		pools = core.Pools
	}

	start := time.Now()
	result := &Result{Units: make(map[core.Pool]int, len(pools))}
	for _, pool := range pools {
		n, err := r.runPool(ctx, pool)
		result.Units[pool] = n
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("reembed %s pool: %w", pool, err)
		}
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (r *Reembedder) runPool(ctx context.Context, pool core.Pool) (int, error) {
	total, err := r.repo.CountUnits(ctx, pool)
	if err != nil {
		return 0, fmt.Errorf("failed to count units: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No units found in %s pool\n", pool)
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d %s units (batch size: %d)\n",
		total, pool, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, pool.String(), total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, pool, func(units []*core.ContentUnit) error {
		if err := r.processor.Process(ctx, units); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Add(len(units))
		return nil
	})
	if err != nil {
		r.logger.Error("reembed failed", "pool", pool, "processed", tracker.Current(), "err", err)
		return tracker.Current(), err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding of %s complete. Processed %d units in %v (%.1f units/sec)\n",
		pool, total, elapsed.Round(time.Millisecond), float64(total)/max(elapsed.Seconds(), 1e-9))

	return total, nil
}
