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

package docent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/openai"
	"github.com/poiesic/docent/assemble"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/index"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/memory"
	"github.com/poiesic/docent/reembed"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
	"github.com/poiesic/docent/telemetry"
)

// Engine ties storage, the pool indices, retrieval, assembly and
// conversation memory together behind one handle.
type Engine struct {
	cfg          *config.Config
	repos        *badger.Repositories
	provider     ai.AIProvider
	ownsProvider bool
	metrics      *telemetry.Metrics
	baseLogger   *slog.Logger
	logger       *slog.Logger

	indices   map[core.Pool]*index.Index
	retriever *search.Retriever
	deduper   *search.Deduplicator
	assembler *assemble.Assembler
	sessions  *memory.Registry

	closed    atomic.Bool
	stopSweep chan struct{}
	sweepWG   sync.WaitGroup
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	config       *config.Config
	provider     ai.AIProvider
	metrics      *telemetry.Metrics
	logger       *slog.Logger
	tokenCounter memory.TokenCounter
	inMemory     bool
}

// WithConfig sets the engine configuration. Default is config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithProvider supplies the AI provider. The engine does not close a
// provider it was given. By default an OpenAI-compatible provider is
// built from the configuration's AI section.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithMetrics records engine activity. A nil value disables recording.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTokenCounter sets how conversation turns are measured.
func WithTokenCounter(counter memory.TokenCounter) Option {
	return func(o *options) {
		o.tokenCounter = counter
	}
}

// InMemory keeps all data in memory. The path given to Open is ignored.
func InMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// Open opens the database at path, rebuilds both pool indices from the
// stored units and starts the idle-session sweeper.
//
// A pool whose stored vectors disagree on dimension is left faulted: Open
// succeeds, but queries fail until the pool is reembedded or rebuilt.
func Open(path string, opts ...Option) (*Engine, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.config == nil {
		o.config = config.Default()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	var (
		repos *badger.Repositories
		err   error
	)
	if o.inMemory {
		repos, err = badger.NewMemoryRepositories()
	} else {
		repos, err = badger.OpenRepositories(path)
	}
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        o.config,
		repos:      repos,
		provider:   o.provider,
		metrics:    o.metrics,
		baseLogger: o.logger,
		logger:     o.logger.With("component", "engine"),
		indices:    make(map[core.Pool]*index.Index, len(core.Pools)),
		stopSweep:  make(chan struct{}),
	}

	if e.provider == nil {
		provider, err := openai.NewProvider(aiConfig(o.config.AI))
		if err != nil {
			repos.Close()
			return nil, err
		}
		e.provider = provider
		e.ownsProvider = true
	}

	if err := e.wire(o); err != nil {
		e.release()
		return nil, err
	}

	ctx := context.Background()
	for _, pool := range core.Pools {
		if _, err := e.rebuild(ctx, pool, true); err != nil && !errors.Is(err, core.ErrDimensionMismatch) {
			e.release()
			return nil, err
		}
	}

	e.startSweeper()
	return e, nil
}

func (e *Engine) wire(o *options) error {
	poolIndices := make([]search.PoolIndex, 0, len(core.Pools))
	for _, pool := range core.Pools {
		idx, err := index.New(pool, index.WithLogger(o.logger))
		if err != nil {
			return err
		}
		e.indices[pool] = idx
		poolIndices = append(poolIndices, idx)
	}

	retriever, err := search.NewRetriever(e.provider.Embedder(), poolIndices, e.cfg,
		search.WithLogger(o.logger), search.WithMetrics(e.metrics))
	if err != nil {
		return err
	}
	e.retriever = retriever
	e.deduper = search.NewDeduplicator(e.cfg.DedupeThreshold, e.cfg.ShingleSize)

	assembler, err := assemble.New(e.cfg, assemble.WithLogger(o.logger), assemble.WithMetrics(e.metrics))
	if err != nil {
		return err
	}
	e.assembler = assembler

	registryOpts := []memory.Option{memory.WithLogger(o.logger), memory.WithMetrics(e.metrics)}
	if o.tokenCounter != nil {
		registryOpts = append(registryOpts, memory.WithTokenCounter(o.tokenCounter))
	}
	sessions, err := memory.NewRegistry(e.repos.Sessions, e.cfg.MemoryWindow, registryOpts...)
	if err != nil {
		return err
	}
	e.sessions = sessions
	return nil
}

// aiConfig maps the engine's AI settings onto provider options, leaving
// provider defaults in place for unset strings and token limits. Temperature
// is always passed through; zero is a valid setting.
func aiConfig(c config.AIConfig) *ai.Config {
	var opts []ai.ConfigOption
	if c.Host != "" {
		opts = append(opts, ai.WithHost(c.Host))
	}
	if c.EmbeddingModel != "" {
		opts = append(opts, ai.WithEmbeddingModel(c.EmbeddingModel))
	}
	if c.ChatModel != "" {
		opts = append(opts, ai.WithChatModel(c.ChatModel))
	}
	if c.APIKey != "" {
		opts = append(opts, ai.WithAPIKey(c.APIKey))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, ai.WithMaxTokens(c.MaxTokens))
	}
	opts = append(opts, ai.WithTemperature(c.Temperature))
	return ai.NewConfig(opts...)
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Units returns the content unit repository.
func (e *Engine) Units() storage.UnitRepository {
	return e.repos.Units
}

// Sessions returns the conversation history repository.
func (e *Engine) Sessions() storage.SessionRepository {
	return e.repos.Sessions
}

// PoolStatus describes one pool index.
type PoolStatus struct {
	Pool      core.Pool
	Size      int
	Dimension int
	Faulted   bool
}

// Status reports the state of every pool index, in pool order.
func (e *Engine) Status() []PoolStatus {
	status := make([]PoolStatus, 0, len(core.Pools))
	for _, pool := range core.Pools {
		idx := e.indices[pool]
		status = append(status, PoolStatus{
			Pool:      pool,
			Size:      idx.Size(),
			Dimension: idx.Dimension(),
			Faulted:   idx.Faulted(),
		})
	}
	return status
}

// Rebuild rebuilds one pool index from storage and records its manifest.
// A failed rebuild leaves the pool faulted; a canceled one leaves it as it was.
func (e *Engine) Rebuild(ctx context.Context, pool core.Pool) (*index.RebuildReport, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if _, ok := e.indices[pool]; !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidPool, pool)
	}
	return e.rebuild(ctx, pool, false)
}

// RebuildAll rebuilds every pool, stopping at the first failure.
func (e *Engine) RebuildAll(ctx context.Context) ([]*index.RebuildReport, error) {
	reports := make([]*index.RebuildReport, 0, len(core.Pools))
	for _, pool := range core.Pools {
		report, err := e.Rebuild(ctx, pool)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// rebuild reloads a pool from the unit repository. On startup the new
// membership is compared with the stored manifest so drift since the last
// build shows up in the log.
func (e *Engine) rebuild(ctx context.Context, pool core.Pool, startup bool) (*index.RebuildReport, error) {
	idx := e.indices[pool]
	report, err := idx.Rebuild(ctx, e.repos.Units)
	e.metrics.SetIndexState(pool, idx.Size(), idx.Faulted())
	if err != nil {
		e.logger.Error("pool index unavailable", "pool", pool, "err", err)
		return nil, err
	}

	if startup {
		previous, err := e.repos.Manifests.LoadManifest(ctx, pool)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			drift := index.Diff(previous.UnitIds, idx.IDs())
			if len(drift.Added) > 0 || len(drift.Removed) > 0 {
				e.logger.Info("pool changed since last build", "pool", pool,
					"added", len(drift.Added), "removed", len(drift.Removed))
			}
		}
	}

	if err := e.saveManifest(ctx, pool); err != nil {
		return nil, err
	}
	return report, nil
}

func (e *Engine) saveManifest(ctx context.Context, pool core.Pool) error {
	if err := e.repos.Manifests.SaveManifest(ctx, e.indices[pool].Manifest()); err != nil {
		return fmt.Errorf("save %s manifest: %w", pool, err)
	}
	return nil
}

// Ingest embeds and stores drafts and inserts them into the live indices.
func (e *Engine) Ingest(ctx context.Context, drafts []ingestion.Draft, opts ...ingestion.Option) (*ingestion.Report, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	base := []ingestion.Option{
		ingestion.WithLogger(e.baseLogger),
		ingestion.WithMetrics(e.metrics),
		ingestion.WithIndexers(e.indexers()...),
	}
	pipeline, err := ingestion.NewPipeline(e.repos.Units, e.provider.Embedder(), append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	report, ingestErr := pipeline.Ingest(ctx, drafts)

	var errs []error
	for _, pool := range core.Pools {
		idx := e.indices[pool]
		e.metrics.SetIndexState(pool, idx.Size(), idx.Faulted())
		if idx.Faulted() {
			continue
		}
		if err := e.saveManifest(context.WithoutCancel(ctx), pool); err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(append([]error{ingestErr}, errs...)...)
}

func (e *Engine) indexers() []ingestion.Indexer {
	indexers := make([]ingestion.Indexer, 0, len(core.Pools))
	for _, pool := range core.Pools {
		indexers = append(indexers, e.indices[pool])
	}
	return indexers
}

// Reembed regenerates the vectors of stored units with the current
// embedding model and then rebuilds the affected pools.
func (e *Engine) Reembed(ctx context.Context, cfg *reembed.Config, progress io.Writer) (*reembed.Result, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if cfg == nil {
		cfg = reembed.DefaultConfig()
	}

	result, err := reembed.NewReembedder(e.repos.Units, e.provider.Embedder(), cfg, progress).Run(ctx)
	if err != nil {
		return result, err
	}

	pools := cfg.Pools
	if len(pools) == 0 {
		pools = core.Pools
	}
	for _, pool := range pools {
		if _, err := e.Rebuild(ctx, pool); err != nil {
			return result, err
		}
	}
	return result, nil
}

// History returns the full persisted history of a session, oldest first.
func (e *Engine) History(ctx context.Context, sessionID string) ([]*core.ConversationTurn, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.repos.Sessions.History(ctx, sessionID)
}

// SessionIDs lists every session with stored history.
func (e *Engine) SessionIDs(ctx context.Context) ([]string, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.repos.Sessions.SessionIDs(ctx)
}

// EndSession evicts a session from memory. Its history stays on disk.
func (e *Engine) EndSession(sessionID string) bool {
	return e.sessions.End(sessionID)
}

// DeleteSession evicts a session and removes its history.
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.sessions.Remove(ctx, sessionID)
}

// Sweep evicts sessions idle for longer than the configured timeout.
func (e *Engine) Sweep() []string {
	if e.cfg.SessionIdleTimeout <= 0 {
		return nil
	}
	evicted := e.sessions.Sweep(e.cfg.SessionIdleTimeout)
	if len(evicted) > 0 {
		e.logger.Debug("evicted idle sessions", "count", len(evicted))
	}
	return evicted
}

func (e *Engine) startSweeper() {
	timeout := e.cfg.SessionIdleTimeout
	if timeout <= 0 {
		return
	}
	interval := max(timeout/2, time.Second)

	e.sweepWG.Add(1)
	go func() {
		defer e.sweepWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.Sweep()
			case <-e.stopSweep:
				return
			}
		}
	}()
}

// Close stops the sweeper, closes an owned AI provider and then storage.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(e.stopSweep)
	e.sweepWG.Wait()
	return e.release()
}

func (e *Engine) release() error {
	if e.ownsProvider {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}
	if err := e.repos.Close(); err != nil {
		e.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}
