package cogs

import "math"

// Snapshot is the bounded, read-only data set one report computation
// operates on. All slices are fetched independently and merged by the
// service before aggregation; nothing here is shared across requests.
type Snapshot struct {
	Sellables       []Sellable
	Aliases         []SellableAlias
	Recipes         []ProductRecipe
	Overrides       []SellableOverride
	ModifierOptions []ModifierOption
	ModifierRecipes []ModifierRecipe
	Inventory       []InventoryItem
	SoldLines       []SoldLine
	Movements       []StockMovement
}

// AggregateTheoretical reconstructs the ingredient cost every sold line
// should have consumed according to the recipe and override versions in
// force at each sale instant, plus the period's waste cost. Per-line
// data problems degrade to zero contribution and a coverage counter;
// only the caller computes variance. Monetary totals are rounded to two
// decimals here, at the reporting boundary, not per line.
func AggregateTheoretical(snap Snapshot) TheoreticalResult {
	agg := newAggregator(snap)
	for _, line := range snap.SoldLines {
		agg.addSoldLine(line)
	}
	waste := agg.wasteCost(snap.Movements)
	return TheoreticalResult{
		TheoreticalCOGSValue: round2(agg.total),
		WasteCostValue:       round2(waste),
		Coverage:             agg.cov,
	}
}

type aggregator struct {
	sellables       *SellableIndex
	recipesByProd   map[int64][]ProductRecipe
	overridesBySell map[int64][]SellableOverride
	modByCatalog    map[string]ModifierOption
	modRecipesByOpt map[int64][]ModifierRecipe
	inventory       map[int64]InventoryItem

	total float64
	cov   Coverage
}

func newAggregator(snap Snapshot) *aggregator {
	agg := &aggregator{
		sellables:       NewSellableIndex(snap.Sellables, snap.Aliases),
		recipesByProd:   make(map[int64][]ProductRecipe),
		overridesBySell: make(map[int64][]SellableOverride),
		modByCatalog:    make(map[string]ModifierOption, len(snap.ModifierOptions)),
		modRecipesByOpt: make(map[int64][]ModifierRecipe),
		inventory:       make(map[int64]InventoryItem, len(snap.Inventory)),
	}
	for _, r := range snap.Recipes {
		agg.recipesByProd[r.ProductID] = append(agg.recipesByProd[r.ProductID], r)
	}
	for _, o := range snap.Overrides {
		agg.overridesBySell[o.SellableID] = append(agg.overridesBySell[o.SellableID], o)
	}
	for _, m := range snap.ModifierOptions {
		if m.CatalogID != "" {
			agg.modByCatalog[m.CatalogID] = m
		}
	}
	for _, r := range snap.ModifierRecipes {
		agg.modRecipesByOpt[r.ModifierOptionID] = append(agg.modRecipesByOpt[r.ModifierOptionID], r)
	}
	for _, item := range snap.Inventory {
		agg.inventory[item.ID] = item
	}
	return agg
}

func (a *aggregator) addSoldLine(line SoldLine) {
	a.cov.SalesLines++
	sellable, ok := a.sellables.Resolve(line)
	if !ok {
		return
	}
	a.cov.MappedSalesLines++

	if recipe, ok := ResolveEffective(a.recipesByProd[sellable.ProductID], line.SoldAt); ok {
		a.cov.SalesLinesWithRecipe++
		lines := recipe.Lines
		if override, ok := ResolveEffective(a.overridesBySell[sellable.ID], line.SoldAt); ok {
			lines = ApplyOverrideOps(recipe.Lines, override.Ops)
		}
		a.total += a.costLines(lines, perUnitFactor(recipe.YieldQty)*line.Qty)
	}

	for _, mod := range line.Modifiers {
		a.addModifier(mod, line)
	}
}

func (a *aggregator) addModifier(mod SoldModifier, line SoldLine) {
	a.cov.ModifiersSeen++
	option, ok := a.modByCatalog[mod.CatalogID]
	if !ok {
		return
	}
	a.cov.MappedModifiers++
	recipe, ok := ResolveEffective(a.modRecipesByOpt[option.ID], line.SoldAt)
	if !ok {
		return
	}
	a.cov.ModifiersWithRecipe++
	// Modifiers are not yield-batched; scale by sold qty times modifier qty.
	a.total += a.costLines(recipe.Lines, line.Qty*mod.Qty)
}

// costLines prices ingredient lines scaled by multiplier. Loss applies
// multiplicatively before conversion into the inventory item's unit.
func (a *aggregator) costLines(lines []RecipeLine, multiplier float64) float64 {
	var total float64
	for _, line := range lines {
		if !isUsableQty(line.Qty) {
			continue
		}
		item, ok := a.inventory[line.InventoryItemID]
		if !ok || item.UnitType == "" {
			a.cov.MissingCostLines++
			continue
		}
		qty := line.Qty * (1 + line.LossPct/100) * multiplier
		converted, ok := Convert(qty, line.Unit, item.UnitType)
		if !ok {
			a.cov.UnitConversionIssues++
			continue
		}
		total += converted * item.UnitCost
	}
	return total
}

// wasteCost sums write-off movements, preferring the movement's own
// unit-cost snapshot and falling back to the item's current cost.
func (a *aggregator) wasteCost(movements []StockMovement) float64 {
	var total float64
	for _, mv := range movements {
		if mv.MovementType != MovementWaste {
			continue
		}
		cost := 0.0
		if mv.UnitCost != nil {
			cost = *mv.UnitCost
		} else if item, ok := a.inventory[mv.InventoryItemID]; ok {
			cost = item.UnitCost
		}
		total += math.Abs(mv.QuantityChange) * cost
	}
	return total
}

// perUnitFactor converts batch-level recipe quantities to a
// per-sellable-unit basis. A missing or non-positive yield defaults to
// a factor of 1.
func perUnitFactor(yieldQty float64) float64 {
	if yieldQty > 0 && !math.IsNaN(yieldQty) && !math.IsInf(yieldQty, 0) {
		return 1 / yieldQty
	}
	return 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
