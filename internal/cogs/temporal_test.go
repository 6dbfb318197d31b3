package cogs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveEffectivePicksLatestStart(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.AddDate(0, 1, 0)
	recipes := []ProductRecipe{
		{ID: 1, EffectiveFrom: t0},
		{ID: 2, EffectiveFrom: t1},
	}

	got, ok := ResolveEffective(recipes, t1.Add(time.Second))
	require.True(t, ok)
	require.Equal(t, int64(2), got.ID)

	got, ok = ResolveEffective(recipes, t0.Add(time.Second))
	require.True(t, ok)
	require.Equal(t, int64(1), got.ID)

	_, ok = ResolveEffective(recipes, t0.Add(-time.Second))
	require.False(t, ok)
}

func TestResolveEffectiveExpiryIsExclusive(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.AddDate(0, 1, 0)
	recipes := []ProductRecipe{
		{ID: 1, EffectiveFrom: t0, EffectiveTo: &t1},
	}

	got, ok := ResolveEffective(recipes, t1.Add(-time.Second))
	require.True(t, ok)
	require.Equal(t, int64(1), got.ID)

	_, ok = ResolveEffective(recipes, t1)
	require.False(t, ok)
}

func TestResolveEffectiveSkipsMalformedStart(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recipes := []ProductRecipe{
		{ID: 1},
		{ID: 2, EffectiveFrom: t0},
	}

	got, ok := ResolveEffective(recipes, t0.Add(time.Hour))
	require.True(t, ok)
	require.Equal(t, int64(2), got.ID)
}

func TestResolveEffectiveEmpty(t *testing.T) {
	_, ok := ResolveEffective([]SellableOverride(nil), time.Now())
	require.False(t, ok)
}
