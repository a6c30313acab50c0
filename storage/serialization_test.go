package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalContentUnit(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	quality := float32(0.9)

	tests := []struct {
		name string
		unit *core.ContentUnit
	}{
		{
			name: "local document",
			unit: &core.ContentUnit{
				Id:         core.ID(1),
				Text:       "Routing steps are edited in the Operations tab.",
				Origin:     core.OriginLocalDocument,
				Locator:    "routing.pdf#p7",
				Vector:     []float32{0.1, 0.2, 0.3},
				InsertedAt: now,
			},
		},
		{
			name: "web unit with optional fields",
			unit: &core.ContentUnit{
				Id:         core.ID(2),
				Text:       "Try clearing the planner cache first.",
				Origin:     core.OriginWebForum,
				Locator:    "https://forum.example.com/t/123",
				Vector:     make([]float32, 1536),
				Recency:    now.Add(-24 * time.Hour),
				Quality:    &quality,
				InsertedAt: now,
			},
		},
		{
			name: "unicode text",
			unit: &core.ContentUnit{
				Id:      core.ID(3),
				Text:    "Hello 世界 🌍 émojis",
				Origin:  core.OriginWebTutorial,
				Locator: "https://blog.example.com/intro",
				Vector:  []float32{1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalContentUnit(tt.unit)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalContentUnit(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			assert.Equal(t, tt.unit.Id, decoded.Id)
			assert.Equal(t, tt.unit.Text, decoded.Text)
			assert.Equal(t, tt.unit.Origin, decoded.Origin)
			assert.Equal(t, tt.unit.Locator, decoded.Locator)
			assert.Equal(t, tt.unit.Vector, decoded.Vector)
			assert.True(t, tt.unit.Recency.Equal(decoded.Recency))
			assert.True(t, tt.unit.InsertedAt.Equal(decoded.InsertedAt))
			assert.Equal(t, tt.unit.Quality, decoded.Quality)
		})
	}
}

func TestUnmarshalContentUnit_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"invalid data", []byte{0xFF, 0xFF, 0xFF}},
		{"partial data", []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalContentUnit(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestMarshalUnmarshalTurn(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	turn := &core.ConversationTurn{
		Id:         core.ID(7),
		SessionId:  "abc",
		Role:       core.RoleUser,
		Text:       "How do I release a work order?",
		Timestamp:  now,
		Citations:  []core.ID{11, 12},
		TokenCount: 8,
	}

	decoded, err := UnmarshalTurn(MarshalTurn(turn))
	require.NoError(t, err)
	assert.Equal(t, turn.Id, decoded.Id)
	assert.Equal(t, turn.SessionId, decoded.SessionId)
	assert.Equal(t, turn.Role, decoded.Role)
	assert.Equal(t, turn.Text, decoded.Text)
	assert.True(t, turn.Timestamp.Equal(decoded.Timestamp))
	assert.Equal(t, turn.Citations, decoded.Citations)
	assert.Equal(t, turn.TokenCount, decoded.TokenCount)
	assert.Empty(t, decoded.Metadata)
}

func TestMarshalUnmarshalManifest(t *testing.T) {
	manifest := &core.IndexManifest{
		Pool:      core.PoolDocuments,
		Dimension: 3,
		UnitIds:   []core.ID{1, 5, 9},
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalManifest(MarshalManifest(manifest))
	require.NoError(t, err)
	assert.Equal(t, manifest.Pool, decoded.Pool)
	assert.Equal(t, manifest.Dimension, decoded.Dimension)
	assert.Equal(t, manifest.UnitIds, decoded.UnitIds)
	assert.True(t, manifest.UpdatedAt.Equal(decoded.UpdatedAt))
}

func TestUnmarshal_NormalizesRecords(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	unit := &core.ContentUnit{
		Id:      core.ID(4),
		Text:    "No vector yet.",
		Origin:  core.OriginLocalDocument,
		Locator: "draft.md",
	}
	decodedUnit, err := UnmarshalContentUnit(MarshalContentUnit(unit))
	require.NoError(t, err)
	assert.Equal(t, unit, decodedUnit)
	assert.True(t, decodedUnit.Recency.IsZero())
	assert.Nil(t, decodedUnit.Vector)

	turn := &core.ConversationTurn{
		Id:        core.ID(8),
		SessionId: "abc",
		Role:      core.RoleAssistant,
		Text:      "Nothing in the docs covers that.",
		Timestamp: now,
		Metadata:  map[string]string{},
	}
	decodedTurn, err := UnmarshalTurn(MarshalTurn(turn))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, decodedTurn.Timestamp.Location())
	assert.Nil(t, decodedTurn.Citations)
	assert.Nil(t, decodedTurn.Metadata)

	manifest := &core.IndexManifest{Pool: core.PoolWeb, UpdatedAt: now}
	decodedManifest, err := UnmarshalManifest(MarshalManifest(manifest))
	require.NoError(t, err)
	assert.Equal(t, manifest, decodedManifest)
}
