package badger

import (
	"context"
	"testing"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRepository(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Manifests.LoadManifest(ctx, core.PoolDocuments)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	manifest := &core.IndexManifest{
		Pool:      core.PoolDocuments,
		Dimension: 3,
		UnitIds:   []core.ID{1, 2, 3},
	}
	require.NoError(t, repos.Manifests.SaveManifest(ctx, manifest))
	assert.False(t, manifest.UpdatedAt.IsZero())

	loaded, err := repos.Manifests.LoadManifest(ctx, core.PoolDocuments)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Dimension)
	assert.Equal(t, []core.ID{1, 2, 3}, loaded.UnitIds)

	_, err = repos.Manifests.LoadManifest(ctx, core.PoolWeb)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
