package cogs

// SellableIndex resolves external catalog variation ids to sellables,
// falling back to historical aliases when the direct id is unknown.
type SellableIndex struct {
	byVariation map[string]Sellable
	byAlias     map[string]int64
	byID        map[int64]Sellable
}

// NewSellableIndex builds the lookup from the fetched sellables and
// aliases. Alias validity windows are deliberately ignored: an alias
// matches regardless of the sale's date, matching current production
// behavior.
func NewSellableIndex(sellables []Sellable, aliases []SellableAlias) *SellableIndex {
	idx := &SellableIndex{
		byVariation: make(map[string]Sellable, len(sellables)),
		byAlias:     make(map[string]int64, len(aliases)),
		byID:        make(map[int64]Sellable, len(sellables)),
	}
	for _, s := range sellables {
		idx.byID[s.ID] = s
		if s.VariationID != "" {
			idx.byVariation[s.VariationID] = s
		}
	}
	for _, a := range aliases {
		if a.VariationID != "" {
			idx.byAlias[a.VariationID] = a.SellableID
		}
	}
	return idx
}

// Resolve maps a sold line to its sellable. The external key prefers
// metadata.variation_id, then metadata.original_catalog_object_id, then
// the raw catalog object id on the line. The second return is false
// when neither a direct sellable nor an alias matches.
func (idx *SellableIndex) Resolve(line SoldLine) (Sellable, bool) {
	key := line.Metadata.VariationID
	if key == "" {
		key = line.Metadata.OriginalCatalogObjectID
	}
	if key == "" {
		key = line.CatalogObjectID
	}
	if key == "" {
		return Sellable{}, false
	}
	if s, ok := idx.byVariation[key]; ok {
		return s, true
	}
	if sellableID, ok := idx.byAlias[key]; ok {
		if s, ok := idx.byID[sellableID]; ok {
			return s, true
		}
	}
	return Sellable{}, false
}
