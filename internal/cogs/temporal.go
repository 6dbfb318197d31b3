package cogs

import "time"

// EffectiveRecord is any record carrying an effective-from/effective-to
// validity window.
type EffectiveRecord interface {
	EffectiveWindow() (time.Time, *time.Time)
}

// ResolveEffective returns the single candidate in force at the given
// instant: effective_from <= at, effective_to absent or after at, tie
// broken by the latest effective_from. Candidates with a zero
// effective_from are malformed and excluded rather than fatal. The
// second return is false when nothing qualifies.
func ResolveEffective[T EffectiveRecord](candidates []T, at time.Time) (T, bool) {
	var best T
	var bestFrom time.Time
	found := false
	for _, c := range candidates {
		from, to := c.EffectiveWindow()
		if from.IsZero() || from.After(at) {
			continue
		}
		if to != nil && !at.Before(*to) {
			continue
		}
		if !found || from.After(bestFrom) {
			best = c
			bestFrom = from
			found = true
		}
	}
	return best, found
}
