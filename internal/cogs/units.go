package cogs

// Conversion factors to a common base per dimension: ounces for mass,
// milliliters for volume. "each" has no dimension and only converts to
// itself.
const (
	ouncesPerPound = 16.0
	mlPerGallon    = 3785.411784
	mlPerLiter     = 1000.0
)

var massToOunces = map[UnitType]float64{
	UnitPound: ouncesPerPound,
	UnitOunce: 1,
}

var volumeToMl = map[UnitType]float64{
	UnitGallon:     mlPerGallon,
	UnitLiter:      mlPerLiter,
	UnitMilliliter: 1,
}

// Convert converts qty between measurement units. The second return is
// false when the pairing is unconvertible (cross-dimension, or anything
// crossing "each"); callers count that as a diagnostic, not a failure.
func Convert(qty float64, from, to UnitType) (float64, bool) {
	if from == to {
		return qty, true
	}
	if f, ok := massToOunces[from]; ok {
		t, ok := massToOunces[to]
		if !ok {
			return 0, false
		}
		return qty * f / t, true
	}
	if f, ok := volumeToMl[from]; ok {
		t, ok := volumeToMl[to]
		if !ok {
			return 0, false
		}
		return qty * f / t, true
	}
	return 0, false
}
