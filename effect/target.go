package effect

// Kind identifies what sort of value an Assigner/Assignment carries, per
// spec §3/§4.8. The fixed resolution order the renderer walks is declared
// once, in render.BuiltinResolutionOrder, rather than duplicated here.
type Kind string

// Built-in kinds. Extensions register additional Kind values of their own.
const (
	KindChannel   Kind = "channel"
	KindFunction  Kind = "function"
	KindColor     Kind = "color"
	KindPanTilt   Kind = "pan-tilt"
	KindDirection Kind = "direction"
	KindAim       Kind = "aim"
)

// TargetID identifies what a kind's value is being assigned to. Its
// concrete type depends on Kind; every built-in TargetID below is a
// comparable struct so it can key a map directly, mirroring how the
// renderer groups assigners by (kind, target-id) in §4.10 step 3.
type TargetID interface{}

// ChannelTarget addresses a single named channel kind (pan, tilt, dimmer,
// focus, strobe, shutter...) on one head.
type ChannelTarget struct {
	FixtureID string
	HeadIndex int
	Channel   string
}

// FunctionTarget addresses a function-range tag on one head.
type FunctionTarget struct {
	FixtureID string
	HeadIndex int
	Tag       string
}

// ColorTarget addresses the mixed color of one head.
type ColorTarget struct {
	FixtureID string
	HeadIndex int
}

// PanTiltTarget addresses the pan/tilt orientation of one head.
type PanTiltTarget struct {
	FixtureID string
	HeadIndex int
}

// DirectionTarget addresses the aim direction of one head.
type DirectionTarget struct {
	FixtureID string
	HeadIndex int
}

// AimTarget addresses the show-space point one head should point at.
type AimTarget struct {
	FixtureID string
	HeadIndex int
}
