package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// Neighbor is one query hit with its Euclidean distance to the query vector.
type Neighbor struct {
	Unit     *core.ContentUnit
	Distance float32
}

// RebuildReport describes how a rebuild changed the pool's membership.
type RebuildReport struct {
	Pool      core.Pool
	Dimension int
	Size      int
	Added     []core.ID
	Removed   []core.ID
	Duration  time.Duration
}

// generation is one immutable build of the index plus later inserts.
type generation struct {
	dimension int
	units     []*core.ContentUnit
	positions map[core.ID]int
	fault     error
}

func newGeneration() *generation {
	return &generation{positions: make(map[core.ID]int)}
}

// add inserts or replaces a unit, enforcing the dimension.
func (g *generation) add(unit *core.ContentUnit) error {
	if g.dimension == 0 {
		g.dimension = len(unit.Vector)
	} else if len(unit.Vector) != g.dimension {
		return fmt.Errorf("%w: unit %s has %d, pool has %d",
			core.ErrDimensionMismatch, unit.Id, len(unit.Vector), g.dimension)
	}

	if pos, ok := g.positions[unit.Id]; ok {
		g.units[pos] = unit
		return nil
	}
	g.positions[unit.Id] = len(g.units)
	g.units = append(g.units, unit)
	return nil
}

func (g *generation) ids() []core.ID {
	ids := make([]core.ID, 0, len(g.units))
	for _, unit := range g.units {
		ids = append(ids, unit.Id)
	}
	slices.Sort(ids)
	return ids
}

// Index is the semantic index of one pool. It is safe for concurrent use.
type Index struct {
	pool   core.Pool
	logger *slog.Logger

	mu  sync.RWMutex
	gen *generation
}

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger for the index.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) error {
		i.logger = logger
		return nil
	}
}

// New creates an empty index for a pool.
func New(pool core.Pool, opts ...Option) (*Index, error) {
	if pool != core.PoolDocuments && pool != core.PoolWeb {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidPool, pool)
	}

	idx := &Index{
		pool:   pool,
		logger: slog.Default(),
		gen:    newGeneration(),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}
	idx.logger = idx.logger.With("component", "index", "pool", pool.String())

	return idx, nil
}

// Pool returns the pool this index serves.
func (i *Index) Pool() core.Pool {
	return i.pool
}

// Insert adds a unit to the index, replacing any unit with the same ID.
// A vector whose length differs from the pool's dimension faults the pool.
func (i *Index) Insert(unit *core.ContentUnit) error {
	if err := core.ValidateContentUnit(unit); err != nil {
		return err
	}
	if unit.Pool() != i.pool {
		return fmt.Errorf("%w: %s unit in %s index", ErrWrongPool, unit.Pool(), i.pool)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.gen.fault != nil {
		return i.faultError()
	}
	if err := i.gen.add(unit); err != nil {
		i.gen.fault = err
		i.logger.Error("pool faulted", "err", err)
		return err
	}
	return nil
}

// Query returns the k nearest units to vector by Euclidean distance, nearest first.
// Equal distances are ordered by locator and then ID.
func (i *Index) Query(vector []float32, k int) ([]Neighbor, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	gen := i.gen
	if gen.fault != nil {
		return nil, i.faultError()
	}
	if k <= 0 || len(gen.units) == 0 {
		return []Neighbor{}, nil
	}
	if len(vector) != gen.dimension {
		return nil, fmt.Errorf("%w: query has %d, pool %s has %d",
			core.ErrDimensionMismatch, len(vector), i.pool, gen.dimension)
	}

	neighbors := make([]Neighbor, len(gen.units))
	for n, unit := range gen.units {
		neighbors[n] = Neighbor{Unit: unit, Distance: euclidean(vector, unit.Vector)}
	}
	slices.SortFunc(neighbors, compareNeighbors)

	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Rebuild replaces the index contents with every unit source enumerates for
// the pool. A canceled or expired ctx leaves the current contents in place;
// any other failure leaves the pool empty and faulted.
func (i *Index) Rebuild(ctx context.Context, source storage.UnitSource) (*RebuildReport, error) {
	if source == nil {
		return nil, ErrUnitSourceRequired
	}
	start := time.Now()

	next := newGeneration()
	var buildErr error
	for unit, err := range source.Units(ctx, i.pool) {
		if err != nil {
			buildErr = err
			break
		}
		if unit.Pool() != i.pool {
			buildErr = fmt.Errorf("%w: unit %s", ErrWrongPool, unit.Id)
			break
		}
		if err := next.add(unit); err != nil {
			buildErr = err
			break
		}
	}

	if errors.Is(buildErr, context.Canceled) || errors.Is(buildErr, context.DeadlineExceeded) {
		i.logger.Warn("rebuild interrupted, keeping current contents", "err", buildErr)
		return nil, fmt.Errorf("rebuild %s: %w", i.pool, buildErr)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if buildErr != nil {
		failed := newGeneration()
		failed.fault = buildErr
		i.gen = failed
		i.logger.Error("rebuild failed, pool faulted", "err", buildErr)
		return nil, fmt.Errorf("rebuild %s: %w", i.pool, buildErr)
	}

	previous := i.gen.ids()
	i.gen = next

	report := Diff(previous, next.ids())
	report.Pool = i.pool
	report.Dimension = next.dimension
	report.Size = len(next.units)
	report.Duration = time.Since(start)

	i.logger.Info("rebuilt pool index",
		"size", report.Size,
		"dimension", report.Dimension,
		"added", len(report.Added),
		"removed", len(report.Removed),
		"duration", report.Duration)
	return report, nil
}

// Size returns the number of indexed units.
func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.gen.units)
}

// Dimension returns the pool's vector length, or 0 while the pool is empty.
func (i *Index) Dimension() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.gen.dimension
}

// Faulted reports whether the pool refuses queries until rebuilt.
func (i *Index) Faulted() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.gen.fault != nil
}

// IDs returns the indexed unit IDs in ascending order.
func (i *Index) IDs() []core.ID {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.gen.ids()
}

// Manifest describes the current generation for persistence.
func (i *Index) Manifest() *core.IndexManifest {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return &core.IndexManifest{
		Pool:      i.pool,
		Dimension: i.gen.dimension,
		UnitIds:   i.gen.ids(),
	}
}

// faultError must be called with the lock held.
func (i *Index) faultError() error {
	return fmt.Errorf("%w (%s): %w", ErrPoolFaulted, i.pool, i.gen.fault)
}

// Diff compares two ascending ID lists.
func Diff(before, after []core.ID) *RebuildReport {
	report := &RebuildReport{}
	b, a := 0, 0
	for b < len(before) && a < len(after) {
		switch {
		case before[b] == after[a]:
			b++
			a++
		case before[b] < after[a]:
			report.Removed = append(report.Removed, before[b])
			b++
		default:
			report.Added = append(report.Added, after[a])
			a++
		}
	}
	report.Removed = append(report.Removed, before[b:]...)
	report.Added = append(report.Added, after[a:]...)
	return report
}

func compareNeighbors(a, b Neighbor) int {
	if a.Distance < b.Distance {
		return -1
	}
	if a.Distance > b.Distance {
		return 1
	}
	if c := strings.Compare(a.Unit.Locator, b.Unit.Locator); c != 0 {
		return c
	}
	switch {
	case a.Unit.Id < b.Unit.Id:
		return -1
	case a.Unit.Id > b.Unit.Id:
		return 1
	default:
		return 0
	}
}

// euclidean returns the L2 distance between two vectors of equal length.
func euclidean(a, b []float32) float32 {
	var sum float64
	for n := range a {
		d := float64(a[n]) - float64(b[n])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}
