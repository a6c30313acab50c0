package search

import (
	"testing"

	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ranked(locator, text string, score float32, rank int) *core.RankedResult {
	return &core.RankedResult{
		Unit:          unit(core.OriginWebForum, locator, text, 0),
		Pool:          core.PoolWeb,
		AdjustedScore: score,
		Rank:          rank,
	}
}

func TestNewDeduplicator_Defaults(t *testing.T) {
	d := NewDeduplicator(0, 0)
	assert.Equal(t, DefaultDedupeThreshold, d.threshold)
	assert.Equal(t, DefaultShingleSize, d.shingleSize)

	d = NewDeduplicator(1.5, 2)
	assert.Equal(t, DefaultDedupeThreshold, d.threshold)
	assert.Equal(t, 2, d.shingleSize)
}

func TestDedupe_SameLocatorKeepsHigherScore(t *testing.T) {
	d := NewDeduplicator(0.8, 3)
	results := []*core.RankedResult{
		ranked("forum/123", "Use the Gantt view to reschedule tasks.", 0.77, 1),
		ranked("guide.pdf", "Plans are created from the Plans tab.", 0.79, 2),
		ranked("forum/123", "Drag bars in the Gantt chart to move dates.", 0.81, 3),
	}

	out := d.Dedupe(results)
	require.Len(t, out, 2)
	assert.Equal(t, "guide.pdf", out[0].Unit.Locator)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, "forum/123", out[1].Unit.Locator)
	assert.Equal(t, float32(0.81), out[1].AdjustedScore)
	assert.Equal(t, 2, out[1].Rank)

	assert.Equal(t, 1, results[0].Rank, "input is not modified")
}

func TestDedupe_NearDuplicateText(t *testing.T) {
	d := NewDeduplicator(0.8, 3)
	text := "To create a baseline open the plan select Baseline from the Actions menu and confirm the dialog"
	results := []*core.RankedResult{
		ranked("https://a", text, 0.9, 1),
		ranked("https://b", text+".", 0.8, 2),
		ranked("https://c", "Resources are assigned from the task properties panel in the schedule view", 0.7, 3),
	}

	out := d.Dedupe(results)
	require.Len(t, out, 2)
	assert.Equal(t, "https://a", out[0].Unit.Locator)
	assert.Equal(t, "https://c", out[1].Unit.Locator)
	assert.Equal(t, []int{1, 2}, []int{out[0].Rank, out[1].Rank})
}

func TestDedupe_TieKeepsEarlier(t *testing.T) {
	d := NewDeduplicator(0.8, 3)
	out := d.Dedupe([]*core.RankedResult{
		ranked("same", "first text here", 0.5, 1),
		ranked("same", "second text here", 0.5, 2),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "first text here", out[0].Unit.Text)
}

func TestDedupe_DistinctUntouched(t *testing.T) {
	d := NewDeduplicator(0.8, 3)
	results := []*core.RankedResult{
		ranked("a", "alpha beta gamma delta", 0.9, 1),
		ranked("b", "epsilon zeta eta theta", 0.8, 2),
	}
	out := d.Dedupe(results)
	require.Len(t, out, 2)
	assert.Equal(t, results[0].Unit, out[0].Unit)
	assert.Equal(t, results[1].Unit, out[1].Unit)
}

func TestDedupe_Empty(t *testing.T) {
	out := NewDeduplicator(0.8, 3).Dedupe(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSimilarity(t *testing.T) {
	d := NewDeduplicator(0.8, 3)
	assert.Equal(t, 1.0, d.Similarity("Open the plan now please", "open THE plan, now please!"))
	assert.Equal(t, 0.0, d.Similarity("alpha beta gamma", "delta epsilon zeta"))
}

func TestDedupe_StopWordOnlyPassages(t *testing.T) {
	d := NewDeduplicator(0.8, 3)
	out := d.Dedupe([]*core.RankedResult{
		ranked("faq#1", "Is it on?", 0.9, 1),
		ranked("faq#2", "It is.", 0.8, 2),
	})
	require.Len(t, out, 2)
	assert.Equal(t, 0.0, d.Similarity("Is it on?", "It is."))

	out = d.Dedupe([]*core.RankedResult{
		ranked("faq#1", "Is it on?", 0.9, 1),
		ranked("faq#3", "is  IT on?", 0.8, 2),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "faq#1", out[0].Unit.Locator)
}

func TestJaccard_EmptySets(t *testing.T) {
	assert.Equal(t, 0.0, jaccard(map[string]struct{}{}, map[string]struct{}{}))
}

func TestShingles(t *testing.T) {
	set := shingles("The quick brown fox jumps", 3)
	assert.Len(t, set, 2)
	assert.Contains(t, set, "quick brown fox")
	assert.Contains(t, set, "brown fox jumps")

	short := shingles("quick fox", 3)
	assert.Len(t, short, 1)
	assert.Contains(t, short, "quick fox")

	assert.Empty(t, shingles("the a an", 3))
}
