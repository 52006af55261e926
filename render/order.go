package render

import "github.com/robmorgan/lumen/effect"

// BuiltinResolutionOrder is the fixed stage order of spec §4.8: later
// stages translate into lower-level channel writes, so higher-level kinds
// resolve last and win when multiple assigners contend for the same
// physical channel.
var BuiltinResolutionOrder = []effect.Kind{
	effect.KindChannel,
	effect.KindFunction,
	effect.KindColor,
	effect.KindPanTilt,
	effect.KindDirection,
	effect.KindAim,
}

// ResolutionOrder returns the full stage order: the fixed built-in kinds
// followed by every registered extension kind in its configured
// sub-order (spec §4.8).
func (s *Show) ResolutionOrder() []effect.Kind {
	order := append([]effect.Kind(nil), BuiltinResolutionOrder...)
	return append(order, s.extensions.ExtensionKinds()...)
}
