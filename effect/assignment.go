package effect

import (
	"fmt"

	"github.com/robmorgan/lumen/fixture"
	"github.com/robmorgan/lumen/rhythm"
)

// FunctionValue is the value carried by a function-kind Assignment: a
// percentage addressed to a function tag (spec §3).
type FunctionValue struct {
	Tag     string
	Percent float64 // [0, 100]
}

// PanTilt is the value carried by a pan-tilt-kind Assignment, in radians.
type PanTilt struct {
	PanAngle  float64
	TiltAngle float64
}

// ShowContext is the minimal read access an effect's generator or a
// producer closure needs from the running show: named variable bindings
// and fixture-group lookups. render.Show implements it; it lives here
// (rather than effect importing render) so effect has no dependency on the
// renderer.
type ShowContext interface {
	Variable(name string) (interface{}, bool)
	FixtureGroup(name string) (*fixture.Group, error)
}

// Assignment is the resolved output of an Assigner for one target, per
// spec §3. A nil *Assignment represents "no assignment" (transparent) —
// the neutral value every fold in §4.10 step 4 starts from.
//
// Value holds a type that depends on Kind: float64 for KindChannel,
// FunctionValue for KindFunction, color.HSL for KindColor, PanTilt for
// KindPanTilt, and spatial.Vec3 for KindDirection/KindAim. Extension
// kinds carry whatever type their resolver expects.
type Assignment struct {
	Kind     Kind
	TargetID TargetID
	Value    interface{}
	Effect   *Effect
}

// CheckMatch fails fast (spec §4.7 "programmer error") when two
// assignments being faded or resolved together disagree on kind or
// target, rather than silently producing a nonsensical blend. render/fade
// calls this before every fade.
func CheckMatch(a, b *Assignment) error {
	if a == nil || b == nil {
		return nil
	}
	if a.Kind != b.Kind {
		return fmt.Errorf("effect: cannot combine assignments of differing kind %q and %q", a.Kind, b.Kind)
	}
	if a.TargetID != b.TargetID {
		return fmt.Errorf("effect: cannot combine assignments for differing targets %v and %v", a.TargetID, b.TargetID)
	}
	return nil
}

// Producer is an Assigner's per-frame contribution function: given the
// show, the current snapshot, the target it was registered for, and the
// previous Assignment in submission order (nil if none yet), it returns
// the new Assignment, or nil to veto. The fold replaces the previous
// Assignment with whatever is returned, so nil leaves the target with no
// assignment; a producer that wants the previous value to pass through
// unchanged returns previous.
type Producer func(ctx ShowContext, snapshot rhythm.Snapshot, target TargetID, previous *Assignment) *Assignment

// Assigner is an effect's opaque-but-typed per-frame request, per spec
// §3. Effects emit a slice of these from Generate; the renderer groups
// them by (Kind, TargetID) and folds each group's producers in submission
// order.
type Assigner struct {
	Kind     Kind
	TargetID TargetID
	Produce  Producer
}
