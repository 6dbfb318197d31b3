package cogs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertIdentity(t *testing.T) {
	for _, unit := range []UnitType{UnitEach, UnitPound, UnitOunce, UnitGallon, UnitLiter, UnitMilliliter} {
		got, ok := Convert(2.5, unit, unit)
		require.True(t, ok)
		require.InDelta(t, 2.5, got, 1e-9)
	}
}

func TestConvertKnownFactors(t *testing.T) {
	got, ok := Convert(1, UnitPound, UnitOunce)
	require.True(t, ok)
	require.InDelta(t, 16, got, 1e-9)

	got, ok = Convert(1, UnitGallon, UnitMilliliter)
	require.True(t, ok)
	require.InDelta(t, 3785.411784, got, 1e-6)

	got, ok = Convert(2, UnitLiter, UnitMilliliter)
	require.True(t, ok)
	require.InDelta(t, 2000, got, 1e-9)

	got, ok = Convert(1, UnitGallon, UnitLiter)
	require.True(t, ok)
	require.InDelta(t, 3.785411784, got, 1e-9)
}

func TestConvertRoundTrip(t *testing.T) {
	pairs := [][2]UnitType{
		{UnitPound, UnitOunce},
		{UnitGallon, UnitLiter},
		{UnitGallon, UnitMilliliter},
		{UnitLiter, UnitMilliliter},
	}
	for _, pair := range pairs {
		forward, ok := Convert(3.7, pair[0], pair[1])
		require.True(t, ok)
		back, ok := Convert(forward, pair[1], pair[0])
		require.True(t, ok)
		require.InDelta(t, 3.7, back, 1e-9)
	}
}

func TestConvertUnconvertiblePairs(t *testing.T) {
	pairs := [][2]UnitType{
		{UnitEach, UnitOunce},
		{UnitEach, UnitMilliliter},
		{UnitOunce, UnitEach},
		{UnitOunce, UnitLiter},
		{UnitGallon, UnitPound},
		{UnitMilliliter, UnitPound},
	}
	for _, pair := range pairs {
		_, ok := Convert(1, pair[0], pair[1])
		require.False(t, ok, "%s -> %s should be unconvertible", pair[0], pair[1])
	}
}

func TestConvertUnknownUnit(t *testing.T) {
	_, ok := Convert(1, UnitType("bushel"), UnitOunce)
	require.False(t, ok)
}
