package reembed

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitIterator_Batches(t *testing.T) {
	repos := setupTestDB(t)
	seedUnits(t, repos, 5, 2)

	iter := NewUnitIterator(repos.Units, 2)
	var sizes []int
	seen := map[core.ID]bool{}
	err := iter.ForEach(context.Background(), core.PoolDocuments, func(units []*core.ContentUnit) error {
		sizes = append(sizes, len(units))
		for _, u := range units {
			assert.Equal(t, core.PoolDocuments, u.Pool())
			seen[u.Id] = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Len(t, seen, 5)
}

func TestUnitIterator_DefaultBatchSize(t *testing.T) {
	iter := NewUnitIterator(nil, 0)
	assert.Equal(t, DefaultBatchSize, iter.batchSize)
}

func TestUnitIterator_EmptyPool(t *testing.T) {
	repos := setupTestDB(t)

	called := false
	err := NewUnitIterator(repos.Units, 2).ForEach(context.Background(), core.PoolWeb, func([]*core.ContentUnit) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestUnitIterator_StopsOnError(t *testing.T) {
	repos := setupTestDB(t)
	seedUnits(t, repos, 6, 0)

	boom := errors.New("boom")
	calls := 0
	err := NewUnitIterator(repos.Units, 2).ForEach(context.Background(), core.PoolDocuments, func([]*core.ContentUnit) error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestUnitIterator_CanceledContext(t *testing.T) {
	repos := setupTestDB(t)
	seedUnits(t, repos, 3, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewUnitIterator(repos.Units, 2).ForEach(ctx, core.PoolDocuments, func([]*core.ContentUnit) error {
		t.Fatal("fn should not run")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
