// Package fixture models patched lighting fixtures: their channels, heads,
// 3-D placement, and the patch operation that binds a fixture definition to
// a universe and base address. It generalizes the teacher's flat
// map[int]Channel profile model (fixture/channel.go, profile/profile.go)
// into the richer, typed channel set spec §3-4.4 requires.
package fixture

// Kind identifies what a channel controls.
type Kind string

const (
	KindPan      Kind = "pan"
	KindTilt     Kind = "tilt"
	KindDimmer   Kind = "dimmer"
	KindFocus    Kind = "focus"
	KindColor    Kind = "color"
	KindStrobe   Kind = "strobe"
	KindShutter  Kind = "shutter"
	KindFunction Kind = "function"
)

// FunctionRange is one selectable sub-range of a function channel, e.g. a
// gobo slot or a color-wheel position. Ranges on a channel must be disjoint
// and sorted in DMX value order; exactly one is selected by a given byte.
type FunctionRange struct {
	Tag      string
	Low      int
	High     int
	ScaleFn  func(percent float64) float64 // percent in [0,100] -> [0,1]; nil means linear
	WheelHue float64                       // only meaningful when this range represents a color-wheel slot
	IsWheel  bool
}

// Scale maps a percentage in [0,100] onto this range's DMX byte value.
func (r FunctionRange) Scale(percent float64) int {
	frac := percent / 100
	if r.ScaleFn != nil {
		frac = r.ScaleFn(percent)
	}
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	v := float64(r.Low) + frac*float64(r.High-r.Low)
	return int(v + 0.5)
}

// ChannelDef is the unpatched definition of a channel, relative to the
// fixture's or head's base address.
type ChannelDef struct {
	Kind Kind

	// Offset is the 1-based DMX offset from the owning fixture/head's base
	// address.
	Offset int

	// FineOffset is the 1-based DMX offset of the fine (16-bit LSB)
	// companion channel, or 0 if this channel has no fine companion.
	FineOffset int

	Inverted bool

	// Hue is the HSL hue in degrees this color channel is mixed at. Ignored
	// for non-color channels.
	Hue float64

	// Functions holds the function-range table for a KindFunction channel.
	Functions []FunctionRange
}

// Channel is a ChannelDef after patching: it knows its absolute DMX address.
type Channel struct {
	ChannelDef
	Universe    int
	Address     int // 1..512
	FineAddress int // 0 if this channel has no fine companion
}

// HasFine reports whether the channel has a 16-bit fine companion.
func (c Channel) HasFine() bool {
	return c.FineAddress > 0
}
