package cogs

import (
	"math"
	"sort"
)

// ApplyOverrideOps replays an override's mutation log over a base
// ingredient list and returns the effective lines. The replay is a pure
// last-writer-wins merge: lines live in a map keyed by inventory item
// id and ops apply in ascending creation-time order, so later ops win
// on conflicting targets. Malformed ops are skipped, never fatal.
func ApplyOverrideOps(base []RecipeLine, ops []OverrideOp) []RecipeLine {
	lines := make(map[int64]RecipeLine, len(base))
	for _, line := range base {
		lines[line.InventoryItemID] = line
	}

	ordered := make([]OverrideOp, len(ops))
	copy(ordered, ops)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	for _, op := range ordered {
		switch op.Kind {
		case OpRemove:
			delete(lines, op.TargetItemID)
		case OpMultiplier:
			applyMultiplier(lines, op)
		case OpReplace:
			applyReplace(lines, op)
		case OpAdd:
			applyAdd(lines, op)
		}
	}

	out := make([]RecipeLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InventoryItemID < out[j].InventoryItemID })
	return out
}

func applyMultiplier(lines map[int64]RecipeLine, op OverrideOp) {
	if !finiteNonZero(op.Multiplier) {
		return
	}
	factor := *op.Multiplier
	if op.TargetItemID != 0 {
		line, ok := lines[op.TargetItemID]
		if !ok {
			return
		}
		line.Qty *= factor
		lines[op.TargetItemID] = line
		return
	}
	for id, line := range lines {
		line.Qty *= factor
		lines[id] = line
	}
}

func applyReplace(lines map[int64]RecipeLine, op OverrideOp) {
	if op.NewItemID == 0 {
		return
	}
	prev, had := lines[op.TargetItemID]
	delete(lines, op.TargetItemID)

	line := RecipeLine{InventoryItemID: op.NewItemID, Unit: UnitEach}
	if had {
		line.Qty = prev.Qty
		line.Unit = prev.Unit
		line.LossPct = prev.LossPct
	}
	if op.Qty != nil && isUsableQty(*op.Qty) {
		line.Qty = *op.Qty
	}
	if op.Unit != nil && *op.Unit != "" {
		line.Unit = *op.Unit
	}
	if op.LossPct != nil {
		line.LossPct = *op.LossPct
	}
	lines[op.NewItemID] = line
}

func applyAdd(lines map[int64]RecipeLine, op OverrideOp) {
	itemID := op.NewItemID
	if itemID == 0 {
		itemID = op.TargetItemID
	}
	if itemID == 0 {
		return
	}
	if op.Qty == nil || !isUsableQty(*op.Qty) {
		return
	}
	if op.Unit == nil || *op.Unit == "" {
		return
	}
	line := RecipeLine{InventoryItemID: itemID, Qty: *op.Qty, Unit: *op.Unit}
	if op.LossPct != nil {
		line.LossPct = *op.LossPct
	}
	lines[itemID] = line
}

func finiteNonZero(v *float64) bool {
	if v == nil {
		return false
	}
	return !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v != 0
}

// isUsableQty reports whether a quantity satisfies the recipe line
// invariant: strictly positive and finite.
func isUsableQty(qty float64) bool {
	return qty > 0 && !math.IsNaN(qty) && !math.IsInf(qty, 0)
}
