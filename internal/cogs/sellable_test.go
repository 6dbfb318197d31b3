package cogs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSellableIndexPrefersMetadataVariationID(t *testing.T) {
	idx := NewSellableIndex([]Sellable{
		{ID: 1, ProductID: 10, VariationID: "VAR-A"},
		{ID: 2, ProductID: 20, VariationID: "VAR-B"},
	}, nil)

	got, ok := idx.Resolve(SoldLine{
		CatalogObjectID: "VAR-B",
		Metadata:        LineMetadata{VariationID: "VAR-A"},
	})
	require.True(t, ok)
	require.Equal(t, int64(1), got.ID)
}

func TestSellableIndexFallsBackToOriginalThenRaw(t *testing.T) {
	idx := NewSellableIndex([]Sellable{
		{ID: 1, ProductID: 10, VariationID: "VAR-A"},
	}, nil)

	got, ok := idx.Resolve(SoldLine{
		CatalogObjectID: "IGNORED",
		Metadata:        LineMetadata{OriginalCatalogObjectID: "VAR-A"},
	})
	require.True(t, ok)
	require.Equal(t, int64(1), got.ID)

	got, ok = idx.Resolve(SoldLine{CatalogObjectID: "VAR-A"})
	require.True(t, ok)
	require.Equal(t, int64(1), got.ID)
}

func TestSellableIndexAliasFallback(t *testing.T) {
	idx := NewSellableIndex(
		[]Sellable{{ID: 1, ProductID: 10, VariationID: "VAR-NEW"}},
		[]SellableAlias{{ID: 5, SellableID: 1, VariationID: "VAR-OLD"}},
	)

	got, ok := idx.Resolve(SoldLine{CatalogObjectID: "VAR-OLD"})
	require.True(t, ok)
	require.Equal(t, int64(1), got.ID)
}

func TestSellableIndexUnmapped(t *testing.T) {
	idx := NewSellableIndex([]Sellable{{ID: 1, ProductID: 10, VariationID: "VAR-A"}}, nil)

	_, ok := idx.Resolve(SoldLine{CatalogObjectID: "UNKNOWN"})
	require.False(t, ok)

	_, ok = idx.Resolve(SoldLine{})
	require.False(t, ok)
}
