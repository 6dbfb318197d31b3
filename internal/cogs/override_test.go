package cogs

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func opAt(sec int, op OverrideOp) OverrideOp {
	op.CreatedAt = time.Date(2026, 1, 1, 0, 0, sec, 0, time.UTC)
	return op
}

func TestApplyOverrideOpsRemoveThenAdd(t *testing.T) {
	base := []RecipeLine{{InventoryItemID: 1, Qty: 2, Unit: UnitOunce}}
	ops := []OverrideOp{
		opAt(1, OverrideOp{ID: 1, Kind: OpRemove, TargetItemID: 1}),
		opAt(2, OverrideOp{ID: 2, Kind: OpAdd, NewItemID: 1, Qty: ptr(5.0), Unit: ptr(UnitPound), LossPct: ptr(2.0)}),
	}

	got := ApplyOverrideOps(base, ops)
	require.Len(t, got, 1)
	require.Equal(t, RecipeLine{InventoryItemID: 1, Qty: 5, Unit: UnitPound, LossPct: 2}, got[0])
}

func TestApplyOverrideOpsUntargetedMultiplierScalesEverything(t *testing.T) {
	base := []RecipeLine{
		{InventoryItemID: 1, Qty: 2, Unit: UnitOunce},
		{InventoryItemID: 2, Qty: 3, Unit: UnitMilliliter},
	}
	ops := []OverrideOp{
		opAt(1, OverrideOp{ID: 1, Kind: OpAdd, NewItemID: 3, Qty: ptr(1.0), Unit: ptr(UnitEach)}),
		opAt(2, OverrideOp{ID: 2, Kind: OpMultiplier, Multiplier: ptr(2.0)}),
	}

	got := ApplyOverrideOps(base, ops)
	require.Len(t, got, 3)
	require.InDelta(t, 4, got[0].Qty, 1e-9)
	require.InDelta(t, 6, got[1].Qty, 1e-9)
	require.InDelta(t, 2, got[2].Qty, 1e-9)
}

func TestApplyOverrideOpsTargetedMultiplier(t *testing.T) {
	base := []RecipeLine{
		{InventoryItemID: 1, Qty: 2, Unit: UnitOunce},
		{InventoryItemID: 2, Qty: 3, Unit: UnitMilliliter},
	}
	ops := []OverrideOp{
		opAt(1, OverrideOp{ID: 1, Kind: OpMultiplier, TargetItemID: 2, Multiplier: ptr(0.5)}),
		opAt(2, OverrideOp{ID: 2, Kind: OpMultiplier, TargetItemID: 99, Multiplier: ptr(4.0)}),
	}

	got := ApplyOverrideOps(base, ops)
	require.Len(t, got, 2)
	require.InDelta(t, 2, got[0].Qty, 1e-9)
	require.InDelta(t, 1.5, got[1].Qty, 1e-9)
}

func TestApplyOverrideOpsMultiplierSkipsBadFactors(t *testing.T) {
	base := []RecipeLine{{InventoryItemID: 1, Qty: 2, Unit: UnitOunce}}
	ops := []OverrideOp{
		opAt(1, OverrideOp{ID: 1, Kind: OpMultiplier, Multiplier: ptr(0.0)}),
		opAt(2, OverrideOp{ID: 2, Kind: OpMultiplier, Multiplier: ptr(math.NaN())}),
		opAt(3, OverrideOp{ID: 3, Kind: OpMultiplier}),
	}

	got := ApplyOverrideOps(base, ops)
	require.Len(t, got, 1)
	require.InDelta(t, 2, got[0].Qty, 1e-9)
}

func TestApplyOverrideOpsReplaceInheritsMissingFields(t *testing.T) {
	base := []RecipeLine{{InventoryItemID: 1, Qty: 2, Unit: UnitOunce, LossPct: 5}}
	ops := []OverrideOp{
		opAt(1, OverrideOp{ID: 1, Kind: OpReplace, TargetItemID: 1, NewItemID: 7, Qty: ptr(3.0)}),
	}

	got := ApplyOverrideOps(base, ops)
	require.Len(t, got, 1)
	require.Equal(t, RecipeLine{InventoryItemID: 7, Qty: 3, Unit: UnitOunce, LossPct: 5}, got[0])
}

func TestApplyOverrideOpsReplaceWithoutExistingLine(t *testing.T) {
	ops := []OverrideOp{
		opAt(1, OverrideOp{ID: 1, Kind: OpReplace, TargetItemID: 1, NewItemID: 7}),
	}

	got := ApplyOverrideOps(nil, ops)
	require.Len(t, got, 1)
	require.Equal(t, RecipeLine{InventoryItemID: 7, Qty: 0, Unit: UnitEach, LossPct: 0}, got[0])
}

func TestApplyOverrideOpsAddRequiresQtyAndUnit(t *testing.T) {
	ops := []OverrideOp{
		opAt(1, OverrideOp{ID: 1, Kind: OpAdd, NewItemID: 1, Unit: ptr(UnitOunce)}),
		opAt(2, OverrideOp{ID: 2, Kind: OpAdd, NewItemID: 2, Qty: ptr(1.0)}),
		opAt(3, OverrideOp{ID: 3, Kind: OpAdd, NewItemID: 3, Qty: ptr(-1.0), Unit: ptr(UnitOunce)}),
	}

	got := ApplyOverrideOps(nil, ops)
	require.Empty(t, got)
}

func TestApplyOverrideOpsOrderedByCreationTime(t *testing.T) {
	// Ops arrive out of order; replay must sort by creation time so the
	// later add wins over the earlier remove.
	ops := []OverrideOp{
		opAt(2, OverrideOp{ID: 2, Kind: OpAdd, NewItemID: 1, Qty: ptr(5.0), Unit: ptr(UnitOunce)}),
		opAt(1, OverrideOp{ID: 1, Kind: OpRemove, TargetItemID: 1}),
	}

	got := ApplyOverrideOps([]RecipeLine{{InventoryItemID: 1, Qty: 2, Unit: UnitOunce}}, ops)
	require.Len(t, got, 1)
	require.InDelta(t, 5, got[0].Qty, 1e-9)
}

func TestApplyOverrideOpsIsIdempotent(t *testing.T) {
	base := []RecipeLine{
		{InventoryItemID: 1, Qty: 2, Unit: UnitOunce},
		{InventoryItemID: 2, Qty: 3, Unit: UnitMilliliter},
	}
	ops := []OverrideOp{
		opAt(1, OverrideOp{ID: 1, Kind: OpRemove, TargetItemID: 2}),
		opAt(2, OverrideOp{ID: 2, Kind: OpAdd, NewItemID: 4, Qty: ptr(1.0), Unit: ptr(UnitEach)}),
		opAt(3, OverrideOp{ID: 3, Kind: OpMultiplier, Multiplier: ptr(3.0)}),
	}

	first := ApplyOverrideOps(base, ops)
	second := ApplyOverrideOps(base, ops)
	require.Equal(t, first, second)
}

func TestApplyOverrideOpsDuplicateBaseKeysLastWins(t *testing.T) {
	base := []RecipeLine{
		{InventoryItemID: 1, Qty: 2, Unit: UnitOunce},
		{InventoryItemID: 1, Qty: 9, Unit: UnitOunce},
	}

	got := ApplyOverrideOps(base, nil)
	require.Len(t, got, 1)
	require.InDelta(t, 9, got[0].Qty, 1e-9)
}
