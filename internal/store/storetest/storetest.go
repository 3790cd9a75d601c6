// Package storetest is a conformance suite every store.Store backend runs.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteflow/internal/domain"
	"siteflow/internal/store"
)

// Run exercises s, which must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save rejects empty name", func(t *testing.T) {
		assert.ErrorIs(t, s.Save(ctx, domain.ProjectContext{}), store.ErrInvalidName)
	})

	t.Run("save then get round trips", func(t *testing.T) {
		pc := domain.ProjectContext{
			ProjectName:    "wind-farm-texas-1",
			Coordinates:    &domain.Coordinates{Latitude: 35.067482, Longitude: -101.395466},
			TerrainResults: map[string]any{"features": float64(12)},
			UpdatedAt:      ts,
		}
		require.NoError(t, s.Save(ctx, pc))
		got, err := s.Get(ctx, pc.ProjectName)
		require.NoError(t, err)
		assert.Equal(t, pc.ProjectName, got.ProjectName)
		require.NotNil(t, got.Coordinates)
		assert.Equal(t, 35.067482, got.Coordinates.Latitude)
		assert.Equal(t, float64(12), got.TerrainResults["features"])
		assert.True(t, got.UpdatedAt.Equal(ts))
	})

	t.Run("save overwrites whole record", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, domain.ProjectContext{
			ProjectName:   "wind-farm-texas-1",
			LayoutResults: map[string]any{"turbines": float64(9)},
			UpdatedAt:     ts.Add(time.Minute),
		}))
		got, err := s.Get(ctx, "wind-farm-texas-1")
		require.NoError(t, err)
		assert.Nil(t, got.TerrainResults)
		assert.Equal(t, float64(9), got.LayoutResults["turbines"])
	})

	t.Run("find by partial name", func(t *testing.T) {
		for _, name := range []string{"wind-farm-texas-2", "wind-farm-oklahoma", "Offshore-Texas"} {
			require.NoError(t, s.Save(ctx, domain.ProjectContext{ProjectName: name, UpdatedAt: ts}))
		}
		got, err := s.FindByPartialName(ctx, "TEXAS")
		require.NoError(t, err)
		assert.Equal(t, []string{"Offshore-Texas", "wind-farm-texas-1", "wind-farm-texas-2"}, names(got))

		all, err := s.FindByPartialName(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 4)

		none, err := s.FindByPartialName(ctx, "nevada")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "wind-farm-oklahoma"))
		require.NoError(t, s.Delete(ctx, "wind-farm-oklahoma"))
		require.NoError(t, s.Delete(ctx, "never-existed"))
		_, err := s.Get(ctx, "wind-farm-oklahoma")
		assert.ErrorIs(t, err, store.ErrNotFound)
		rest, err := s.FindByPartialName(ctx, "wind-farm")
		require.NoError(t, err)
		assert.Equal(t, []string{"wind-farm-texas-1", "wind-farm-texas-2"}, names(rest))
	})
}

func names(list []domain.ProjectContext) []string {
	out := make([]string, 0, len(list))
	for _, pc := range list {
		out = append(out, pc.ProjectName)
	}
	return out
}
