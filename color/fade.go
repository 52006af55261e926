package color

// Darken returns a copy of c with lightness driven to 0, used as the
// implicit "no assignment" side of a color fade per spec §4.7: fading
// to/from nothing fades to/from a darkened version of the active color
// rather than desaturating to gray, so a color never visibly grays out on
// its way to black.
func Darken(c HSL) HSL {
	return HSL{H: c.H, S: c.S, L: 0, Alpha: c.Alpha}
}

// Blend interpolates from one HSL color to another by fraction t, taking
// the shorter path around the hue circle and interpolating saturation and
// lightness linearly.
func Blend(from, to HSL, t float64) HSL {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}

	h := blendHue(from.H, to.H, t)
	return HSL{
		H:     h,
		S:     from.S + (to.S-from.S)*t,
		L:     from.L + (to.L-from.L)*t,
		Alpha: from.Alpha + (to.Alpha-from.Alpha)*t,
	}
}

func blendHue(from, to, t float64) float64 {
	from, to = normalizeHue(from), normalizeHue(to)
	diff := to - from
	switch {
	case diff > 180:
		diff -= 360
	case diff < -180:
		diff += 360
	}
	return normalizeHue(from + diff*t)
}
