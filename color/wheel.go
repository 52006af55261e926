package color

import "sort"

// WheelEntry is one gel/dichroic slot on a fixture's color wheel, addressed
// through a function-channel DMX range (see fixture.FunctionRange).
type WheelEntry struct {
	Hue  float64
	Tag  string
	Low  int
	High int
}

// Midpoint returns the DMX value at the center of the entry's range, the
// value the resolver writes when this entry is selected.
func (e WheelEntry) Midpoint() int {
	return (e.Low + e.High) / 2
}

// SelectWheelEntry finds the entry whose hue is nearest the target color's
// hue, per spec §4.3: the target's saturation must be at least minSaturation
// and the hue distance must not exceed hueTolerance, or no entry is
// selected. Entries are considered in ascending hue order and ties are
// awarded to the later (higher-hue) entry in that order, matching the
// worked example in spec §8 scenario 5.
func SelectWheelEntry(entries []WheelEntry, target HSL, hueTolerance, minSaturation float64) (WheelEntry, bool) {
	if target.S < minSaturation {
		return WheelEntry{}, false
	}

	sorted := make([]WheelEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Hue < sorted[j].Hue })

	var best WheelEntry
	bestDist := -1.0
	found := false
	for _, e := range sorted {
		d := HueDistance(target.H, e.Hue)
		if d > hueTolerance {
			continue
		}
		if !found || d <= bestDist {
			best, bestDist, found = e, d, true
		}
	}
	return best, found
}
