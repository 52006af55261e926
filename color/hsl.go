// Package color implements the HSL color model used by effects, including
// RGB/white/amber/UV channel extraction and color-wheel hue matching, per
// spec §4.3. HSL<->RGB conversion and hue-distance math are delegated to
// github.com/lucasb-eyer/go-colorful, the same library the teacher reaches
// for in legacy/fixture/fixture.go.
package color

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Primary hues, in degrees, for the channel kinds that are mixed by
// projecting onto a fixed hue rather than read directly off RGB.
const (
	HueRed   = 0.0
	HueGreen = 120.0
	HueBlue  = 240.0
	HueAmber = 30.0
	HueUV    = 275.0
)

// HSL is a color in hue/saturation/lightness space. H is in [0,360), S and L
// are in [0,100], Alpha is in [0,1].
type HSL struct {
	H, S, L, Alpha float64
}

// New returns an HSL color with full alpha.
func New(h, s, l float64) HSL {
	return HSL{H: normalizeHue(h), S: s, L: l, Alpha: 1}
}

// Colorful converts to a github.com/lucasb-eyer/go-colorful Color.
func (c HSL) Colorful() colorful.Color {
	return colorful.Hsl(normalizeHue(c.H), clamp01(c.S/100), clamp01(c.L/100))
}

// FromColorful builds an HSL from a go-colorful Color.
func FromColorful(cc colorful.Color) HSL {
	h, s, l := cc.Hsl()
	return HSL{H: normalizeHue(h), S: s * 100, L: l * 100, Alpha: 1}
}

// RGB returns the red, green and blue components in [0,1].
func (c HSL) RGB() (r, g, b float64) {
	cc := c.Colorful()
	return clamp01(cc.R), clamp01(cc.G), clamp01(cc.B)
}

// White returns the contribution a white channel should receive: the common
// component of red, green and blue, scaled by lightness.
func (c HSL) White() float64 {
	r, g, b := c.RGB()
	return math.Min(r, math.Min(g, b))
}

// Primary returns the contribution of the named primary hue (e.g. HueRed,
// HueAmber, HueUV) to this color. True RGB primaries (red/green/blue) are
// read directly off the RGB conversion for accuracy; other hues (amber, UV,
// and any custom wheel/LED hue) use a triangular projection of the target
// hue onto the channel's hue, scaled by saturation and lightness, since they
// have no direct RGB component.
func (c HSL) Primary(hue float64) float64 {
	switch normalizeHue(hue) {
	case HueRed:
		r, _, _ := c.RGB()
		return r
	case HueGreen:
		_, g, _ := c.RGB()
		return g
	case HueBlue:
		_, _, b := c.RGB()
		return b
	default:
		d := HueDistance(c.H, hue)
		weight := math.Max(0, 1-d/90.0)
		return clamp01(weight * (c.S / 100) * (c.L / 100) * 2)
	}
}

// HueDistance returns the shortest angular distance between two hues, in
// [0,180] degrees.
func HueDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(normalizeHue(a)-normalizeHue(b)), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func normalizeHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
