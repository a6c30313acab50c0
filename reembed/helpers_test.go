package reembed

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage/badger"
	"github.com/stretchr/testify/require"
)

// mockEmbedder for testing
type mockEmbedder struct {
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vs, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedTextsFunc != nil {
		return m.embedTextsFunc(ctx, texts)
	}
	// Default: unnormalized vectors of magnitude 3
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 2.0, 2.0}
	}
	return result, nil
}

func setupTestDB(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

// seedUnits stores n units per pool with a placeholder vector.
func seedUnits(t *testing.T, repos *badger.Repositories, docs, web int) []*core.ContentUnit {
	t.Helper()
	var units []*core.ContentUnit
	for n := range docs {
		units = append(units, &core.ContentUnit{
			Text:    fmt.Sprintf("document passage %d", n),
			Origin:  core.OriginLocalDocument,
			Locator: fmt.Sprintf("guide.pdf p%d", n),
			Vector:  []float32{0.5},
		})
	}
	for n := range web {
		units = append(units, &core.ContentUnit{
			Text:    fmt.Sprintf("forum post %d", n),
			Origin:  core.OriginWebForum,
			Locator: fmt.Sprintf("https://forum/%d", n),
			Vector:  []float32{0.5},
		})
	}
	added, err := repos.Units.AddUnits(context.Background(), units...)
	require.NoError(t, err)
	return added
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
