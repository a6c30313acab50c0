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

package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/index"
	"github.com/poiesic/docent/telemetry"
	"golang.org/x/sync/errgroup"
)

// PoolIndex is the read side of a pool's semantic index.
type PoolIndex interface {
	Pool() core.Pool
	Query(vector []float32, k int) ([]index.Neighbor, error)
}

var _ PoolIndex = (*index.Index)(nil)

// Retriever ranks content units from every pool against a query.
type Retriever struct {
	embedder       ai.Embedder
	indices        []PoolIndex
	weights        map[core.Pool]float32
	topK           int
	threshold      float32
	expansionTurns int
	embedTimeout   time.Duration
	metrics        *telemetry.Metrics
	logger         *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMetrics records retrieval outcomes. A nil value disables recording.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(r *Retriever) error {
		r.metrics = metrics
		return nil
	}
}

// NewRetriever creates a retriever over the given pool indices.
// Indices are queried in pool order regardless of the order given.
func NewRetriever(embedder ai.Embedder, indices []PoolIndex, cfg *config.Config, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if len(indices) == 0 {
		return nil, ErrIndexRequired
	}
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	seen := make(map[core.Pool]bool, len(indices))
	for _, idx := range indices {
		if seen[idx.Pool()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePool, idx.Pool())
		}
		seen[idx.Pool()] = true
	}

	r := &Retriever{
		embedder:       embedder,
		indices:        slices.Clone(indices),
		weights:        make(map[core.Pool]float32, len(indices)),
		topK:           cfg.TopKPerPool,
		threshold:      cfg.RelevanceThreshold,
		expansionTurns: cfg.ExpansionTurns,
		embedTimeout:   cfg.EmbedTimeout,
		logger:         slog.Default().With("component", "retriever"),
	}
	slices.SortFunc(r.indices, func(a, b PoolIndex) int {
		return cmp.Compare(a.Pool(), b.Pool())
	})
	for _, idx := range r.indices {
		r.weights[idx.Pool()] = cfg.Weight(idx.Pool())
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve returns the ranked results for query, expanded with the
// conversation window. At most TopKPerPool results come from each pool
// and none scores below the relevance threshold.
func (r *Retriever) Retrieve(ctx context.Context, query string, window []core.ConversationTurn) ([]*core.RankedResult, error) {
	return r.RetrieveWithMonitor(ctx, query, window, nil)
}

// RetrieveWithMonitor is Retrieve with a monitor that receives callbacks at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, window []core.ConversationTurn, monitor SearchMonitor) (results []*core.RankedResult, err error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	start := time.Now()
	defer func() {
		r.metrics.RecordRetrieval(results, err, time.Since(start))
	}()

	monitor.Start(query)
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query", core.ErrEmptyContent)
	}

	// 1. Expand and embed once
	expanded := ExpandQuery(query, window, r.expansionTurns)
	monitor.AfterExpansion(expanded)

	vector, err := r.embed(ctx, expanded)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(vector)

	// 2. Query every pool in parallel
	perPool := make([][]index.Neighbor, len(r.indices))
	g, gctx := errgroup.WithContext(ctx)
	for n, idx := range r.indices {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			neighbors, err := idx.Query(vector, r.topK)
			if err != nil {
				return fmt.Errorf("query %s pool: %w", idx.Pool(), err)
			}
			perPool[n] = neighbors
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		err = contextError(ctx, err)
		r.logger.Error("error querying pools", "err", err)
		return nil, err
	}

	// 3. Score and merge
	var candidates []*core.RankedResult
	for n, idx := range r.indices {
		pool := idx.Pool()
		monitor.AfterPoolQuery(pool, perPool[n])
		r.metrics.RecordCandidates(pool, len(perPool[n]))

		weight := r.weights[pool]
		for _, neighbor := range perPool[n] {
			candidates = append(candidates, &core.RankedResult{
				Unit:          neighbor.Unit,
				Pool:          pool,
				RawDistance:   neighbor.Distance,
				PoolWeight:    weight,
				AdjustedScore: Score(weight, neighbor.Distance),
			})
		}
	}
	slices.SortStableFunc(candidates, compareResults)
	monitor.AfterMerge(candidates)

	// 4. Threshold and rank
	results = make([]*core.RankedResult, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.AdjustedScore < r.threshold {
			continue
		}
		candidate.Rank = len(results) + 1
		results = append(results, candidate)
	}

	r.logger.Debug("retrieval complete",
		"candidates", len(candidates),
		"results", len(results),
		"elapsed", time.Since(start))
	monitor.Finish(results)
	return results, nil
}

// embed applies the embedding timeout and maps context failures.
func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx := ctx
	if r.embedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.embedTimeout)
		defer cancel()
	}

	vector, err := r.embedder.EmbedText(embedCtx, text)
	if err != nil {
		if ctx.Err() == nil && errors.Is(embedCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: embedding exceeded %s", core.ErrRetrievalTimeout, r.embedTimeout)
		}
		return nil, contextError(ctx, fmt.Errorf("embed query: %w", err))
	}
	return vector, nil
}

// contextError maps caller cancellation and deadlines onto retrieval errors.
func contextError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("retrieval canceled: %w", ctx.Err())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", core.ErrRetrievalTimeout, err)
	default:
		return err
	}
}

// ExpandQuery prefixes query with the last turns user turns of window,
// oldest first, one per line.
func ExpandQuery(query string, window []core.ConversationTurn, turns int) string {
	var recent []string
	for n := len(window) - 1; n >= 0 && len(recent) < turns; n-- {
		if window[n].Role == core.RoleUser {
			recent = append(recent, window[n].Text)
		}
	}
	slices.Reverse(recent)
	return strings.Join(append(recent, query), "\n")
}

// Score converts a raw distance into a weighted similarity in (0, weight].
func Score(weight, distance float32) float32 {
	return weight * (1 / (1 + distance))
}

// compareResults orders by descending score, then documents before web,
// then locator and unit ID.
func compareResults(a, b *core.RankedResult) int {
	if c := cmp.Compare(b.AdjustedScore, a.AdjustedScore); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Pool, b.Pool); c != 0 {
		return c
	}
	if c := strings.Compare(a.Unit.Locator, b.Unit.Locator); c != 0 {
		return c
	}
	return cmp.Compare(a.Unit.Id, b.Unit.Id)
}
