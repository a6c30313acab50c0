package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/docent/ai/mock"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/index"
	"github.com/poiesic/docent/storage/badger"
	"github.com/poiesic/docent/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepositories(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func docDraft(locator, text string) Draft {
	return Draft{Text: text, Origin: core.OriginLocalDocument.String(), Locator: locator}
}

func webDraft(locator, text string) Draft {
	return Draft{Text: text, Origin: core.OriginWebForum.String(), Locator: locator}
}

func TestNewPipeline(t *testing.T) {
	repos := setupTestRepositories(t)
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		p, err := NewPipeline(repos.Units, embedder)
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, DefaultBatchSize, p.batchSize)
	})

	t.Run("with options", func(t *testing.T) {
		p, err := NewPipeline(repos.Units, embedder,
			WithPoolSize(0),
			WithBatchSize(-1),
			WithLogger(nil),
		)
		require.NoError(t, err)
		defer p.Release()
		assert.Equal(t, 1, p.embeddingPool.Cap())
		assert.Equal(t, 1, p.batchSize)
		assert.Equal(t, slog.Default(), p.logger)
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewPipeline(nil, embedder)
		assert.Equal(t, ErrUnitRepositoryRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewPipeline(repos.Units, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})
}

func TestIngest_StoresAndIndexes(t *testing.T) {
	repos := setupTestRepositories(t)
	metrics := telemetry.New(prometheus.NewRegistry())

	docs, err := index.New(core.PoolDocuments)
	require.NoError(t, err)
	web, err := index.New(core.PoolWeb)
	require.NoError(t, err)

	p, err := NewPipeline(repos.Units, mock.NewMockEmbedder(),
		WithBatchSize(2),
		WithPoolSize(2),
		WithIndexers(docs, web),
		WithMetrics(metrics),
	)
	require.NoError(t, err)
	defer p.Release()

	ctx := context.Background()
	report, err := p.Ingest(ctx, []Draft{
		docDraft("guide.pdf p1", "Create a plan from the Plans tab."),
		docDraft("guide.pdf p2", "Baselines freeze the schedule."),
		docDraft("guide.pdf p3", "Resources are assigned per task."),
		webDraft("https://forum/1", "You can also drag tasks in the Gantt view."),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Stored)
	assert.Equal(t, 0, report.Failed)

	count, err := repos.Units.CountUnits(ctx, core.PoolDocuments)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.Equal(t, 3, docs.Size())
	assert.Equal(t, 1, web.Size())
	assert.Equal(t, mock.DefaultDimension, docs.Dimension())

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.UnitsIngestedTotal.WithLabelValues("documents")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UnitsIngestedTotal.WithLabelValues("web")))
}

func TestIngest_Idempotent(t *testing.T) {
	repos := setupTestRepositories(t)
	p, err := NewPipeline(repos.Units, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer p.Release()

	ctx := context.Background()
	drafts := []Draft{docDraft("a.pdf", "same text")}
	_, err = p.Ingest(ctx, drafts)
	require.NoError(t, err)
	_, err = p.Ingest(ctx, drafts)
	require.NoError(t, err)

	count, err := repos.Units.CountUnits(ctx, core.PoolDocuments)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngest_InvalidOrigin(t *testing.T) {
	repos := setupTestRepositories(t)
	p, err := NewPipeline(repos.Units, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer p.Release()

	report, err := p.Ingest(context.Background(), []Draft{{Text: "x", Origin: "fax", Locator: "l"}})
	assert.ErrorIs(t, err, core.ErrInvalidOrigin)
	assert.Equal(t, 0, report.Stored)
	assert.Equal(t, 1, report.Failed)
}

func TestIngest_EmbedderFailureIsolatedToBatch(t *testing.T) {
	repos := setupTestRepositories(t)
	embedder := mock.NewMockEmbedder()
	boom := errors.New("embedder error")

	var mu sync.Mutex
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		mu.Lock()
		defer mu.Unlock()
		if strings.Contains(texts[0], "fail") {
			return nil, boom
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.BagOfWords(text, 8)
		}
		return out, nil
	}

	p, err := NewPipeline(repos.Units, embedder, WithBatchSize(1))
	require.NoError(t, err)
	defer p.Release()

	report, err := p.Ingest(context.Background(), []Draft{
		docDraft("a", "good one"),
		docDraft("b", "fail here"),
		docDraft("c", "good two"),
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 1, report.Failed)
}

func TestIngest_EmbeddingMismatch(t *testing.T) {
	repos := setupTestRepositories(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	p, err := NewPipeline(repos.Units, embedder)
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Ingest(context.Background(), []Draft{docDraft("a", "one"), docDraft("b", "two")})
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestIngest_DimensionMismatchFaultsPool(t *testing.T) {
	repos := setupTestRepositories(t)
	docs, err := index.New(core.PoolDocuments)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = make([]float32, len(text))
			out[i][0] = 1
		}
		return out, nil
	}

	p, err := NewPipeline(repos.Units, embedder, WithIndexers(docs), WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Ingest(context.Background(), []Draft{docDraft("a", "abc"), docDraft("b", "abcd")})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.True(t, docs.Faulted())
}

func TestIngest_CanceledContext(t *testing.T) {
	repos := setupTestRepositories(t)
	p, err := NewPipeline(repos.Units, mock.NewMockEmbedder())
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Ingest(ctx, []Draft{docDraft("a", "one")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Failed)
}

func TestSplit(t *testing.T) {
	short := docDraft("a.pdf", "short text")
	long := docDraft("b.pdf", strings.TrimSpace(strings.Repeat("word ", 30)))

	out := Split([]Draft{short, long}, 40)
	require.Greater(t, len(out), 2)
	assert.Equal(t, short, out[0])

	var rebuilt []string
	for n, draft := range out[1:] {
		assert.Equal(t, fmt.Sprintf("b.pdf (part %d)", n+1), draft.Locator)
		assert.LessOrEqual(t, core.CharCount(draft.Text), 40)
		assert.False(t, strings.HasPrefix(draft.Text, " "))
		rebuilt = append(rebuilt, draft.Text)
	}
	assert.Equal(t, long.Text, strings.Join(rebuilt, " "))
}

func TestSplitText_NoWhitespace(t *testing.T) {
	parts := splitText(strings.Repeat("x", 25), 10)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, parts)
}
