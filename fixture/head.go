package fixture

import "github.com/robmorgan/lumen/spatial"

// HeadDef is the unpatched definition of a fixture head.
type HeadDef struct {
	// Position is relative to the owning fixture's origin, in meters.
	Position spatial.Vec3

	// Rotation is relative to the owning fixture's rotation.
	Rotation spatial.Mat3

	Channels []ChannelDef

	// Calibration is the pan/tilt byte<->angle mapping for this head. Heads
	// with no moving channels leave this zero-valued; callers must check
	// HasMovement before using it.
	Calibration spatial.Calibration
}

// Head is a HeadDef after patching: it knows its absolute world-space
// placement and its channels carry absolute DMX addresses.
type Head struct {
	Index int

	// Position and Rotation are in show-space, after composing with the
	// owning fixture's placement.
	Position spatial.Vec3
	Rotation spatial.Mat3

	Channels []*Channel

	Calibration spatial.Calibration
	hasMovement bool
}

// HasMovement reports whether this head declares pan/tilt channels and
// therefore a usable Calibration.
func (h *Head) HasMovement() bool {
	return h.hasMovement
}

// ChannelOfKind returns the first channel of the given kind on this head, if
// any.
func (h *Head) ChannelOfKind(kind Kind) (*Channel, bool) {
	for _, c := range h.Channels {
		if c.Kind == kind {
			return c, true
		}
	}
	return nil, false
}

// FunctionChannel returns the first function channel carrying a range
// tagged with the given tag, along with that range.
func (h *Head) FunctionChannel(tag string) (*Channel, FunctionRange, bool) {
	for _, c := range h.Channels {
		if c.Kind != KindFunction {
			continue
		}
		for _, r := range c.Functions {
			if r.Tag == tag {
				return c, r, true
			}
		}
	}
	return nil, FunctionRange{}, false
}

// ColorChannels returns every color-kind channel on this head. Function
// channels carrying color-wheel ranges are not included.
func (h *Head) ColorChannels() []*Channel {
	var out []*Channel
	for _, c := range h.Channels {
		if c.Kind == KindColor {
			out = append(out, c)
		}
	}
	return out
}

// WheelChannel returns the first function channel whose ranges include a
// color wheel slot, if any.
func (h *Head) WheelChannel() (*Channel, bool) {
	for _, c := range h.Channels {
		if c.Kind != KindFunction {
			continue
		}
		for _, r := range c.Functions {
			if r.IsWheel {
				return c, true
			}
		}
	}
	return nil, false
}
