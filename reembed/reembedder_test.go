package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReembedder_Run(t *testing.T) {
	repos := setupTestDB(t)
	seedUnits(t, repos, 7, 3)
	ctx := context.Background()

	var buf bytes.Buffer
	config := &Config{
		BatchSize:      3,
		ReportInterval: 3,
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
		Normalize:      true,
	}

	result, err := NewReembedder(repos.Units, &mockEmbedder{}, config, &buf).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, result.Units[core.PoolDocuments])
	assert.Equal(t, 3, result.Units[core.PoolWeb])

	for _, pool := range core.Pools {
		for unit, err := range repos.Units.Units(ctx, pool) {
			require.NoError(t, err)
			assert.Len(t, unit.Vector, 3)
			assert.InDelta(t, 1.0, magnitude(unit.Vector), 1e-5)
		}
	}

	output := buf.String()
	assert.Contains(t, output, "documents: 7/7")
	assert.Contains(t, output, "web: 3/3")
}

func TestReembedder_RebuiltIndexUsesNewVectors(t *testing.T) {
	repos := setupTestDB(t)
	seedUnits(t, repos, 4, 0)
	ctx := context.Background()

	_, err := NewReembedder(repos.Units, &mockEmbedder{}, &Config{BatchSize: 2, MaxRetries: 1}, nil).Run(ctx)
	require.NoError(t, err)

	idx, err := index.New(core.PoolDocuments)
	require.NoError(t, err)
	_, err = idx.Rebuild(ctx, repos.Units)
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Size())
	assert.Equal(t, 3, idx.Dimension())
}

func TestReembedder_SelectedPools(t *testing.T) {
	repos := setupTestDB(t)
	seedUnits(t, repos, 2, 2)

	config := DefaultConfig()
	config.Pools = []core.Pool{core.PoolWeb}

	result, err := NewReembedder(repos.Units, &mockEmbedder{}, config, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[core.Pool]int{core.PoolWeb: 2}, result.Units)
}

func TestReembedder_EmptyDatabase(t *testing.T) {
	repos := setupTestDB(t)

	var buf bytes.Buffer
	result, err := NewReembedder(repos.Units, &mockEmbedder{}, nil, &buf).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Units[core.PoolDocuments])
	assert.Contains(t, buf.String(), "No units found in documents pool")
}

func TestReembedder_Failure(t *testing.T) {
	repos := setupTestDB(t)
	seedUnits(t, repos, 5, 0)

	calls := 0
	boom := errors.New("boom")
	embedder := &mockEmbedder{embedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls > 1 {
			return nil, boom
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1}
		}
		return out, nil
	}}

	config := &Config{BatchSize: 2, ReportInterval: 100, MaxRetries: 1, RetryDelay: time.Millisecond}
	result, err := NewReembedder(repos.Units, embedder, config, nil).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, result.Units[core.PoolDocuments])
}
