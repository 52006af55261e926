// Package fade implements the composition/fade kernel of spec §4.7: the
// per-kind blend between two successive assignments. It has no direct
// teacher equivalent (the teacher has no effect-composition concept at
// all); its dispatch-by-kind shape follows spec §9's "polymorphism over
// assignment kinds" design note, and its color/spatial math is built on
// the color and spatial packages; the color package leans on the same
// go-colorful library the teacher uses for color handling, while spatial
// uses only the standard math package.
package fade

import (
	"fmt"
	"math"

	"github.com/robmorgan/lumen/color"
	"github.com/robmorgan/lumen/effect"
	"github.com/robmorgan/lumen/fixture"
	"github.com/robmorgan/lumen/spatial"
)

// Context supplies the per-target state a fade needs beyond the two
// assignments themselves: a null/neutral side for direction and aim
// fades depends on the target head's position (spec §4.7).
type Context struct {
	Head *fixture.Head
}

// Fade blends from and to by fraction t (0 → from, 1 → to) according to
// the rules of spec §4.7, for one of the six built-in kinds. Fading
// assignments of differing kind or target is a programmer error and
// fails fast, per spec §4.7/§7.
func Fade(kind effect.Kind, from, to *effect.Assignment, t float64, ctx Context) (*effect.Assignment, error) {
	if err := effect.CheckMatch(from, to); err != nil {
		return nil, err
	}
	if from == nil && to == nil {
		return nil, nil
	}
	if t <= 0 && from != nil {
		return from, nil
	}
	if t >= 1 && to != nil {
		return to, nil
	}

	switch kind {
	case effect.KindChannel:
		return fadeChannel(from, to, t), nil
	case effect.KindFunction:
		return fadeFunction(from, to, t), nil
	case effect.KindColor:
		return fadeColor(from, to, t), nil
	case effect.KindPanTilt:
		return fadePanTilt(from, to, t, ctx), nil
	case effect.KindDirection:
		return fadeDirection(from, to, t, ctx), nil
	case effect.KindAim:
		return fadeAim(from, to, t, ctx), nil
	default:
		return nil, fmt.Errorf("render/fade: kind %q is not a built-in fade kind", kind)
	}
}

func baseOf(from, to *effect.Assignment) *effect.Assignment {
	if from != nil {
		return from
	}
	return to
}

func channelValue(a *effect.Assignment) float64 {
	if a == nil {
		return 0
	}
	v, _ := a.Value.(float64)
	return v
}

func fadeChannel(from, to *effect.Assignment, t float64) *effect.Assignment {
	base := baseOf(from, to)
	v := channelValue(from) + (channelValue(to)-channelValue(from))*t
	return &effect.Assignment{Kind: effect.KindChannel, TargetID: base.TargetID, Value: v, Effect: base.Effect}
}

func fadeFunction(from, to *effect.Assignment, t float64) *effect.Assignment {
	base := baseOf(from, to)

	var fv, tv effect.FunctionValue
	if from != nil {
		fv, _ = from.Value.(effect.FunctionValue)
	}
	if to != nil {
		tv, _ = to.Value.(effect.FunctionValue)
	}

	switch {
	case from != nil && to != nil && fv.Tag == tv.Tag:
		return &effect.Assignment{
			Kind: effect.KindFunction, TargetID: base.TargetID, Effect: base.Effect,
			Value: effect.FunctionValue{Tag: fv.Tag, Percent: fv.Percent + (tv.Percent-fv.Percent)*t},
		}
	case to == nil:
		// from contributes (1-t)*value as it fades to nothing.
		return &effect.Assignment{
			Kind: effect.KindFunction, TargetID: base.TargetID, Effect: base.Effect,
			Value: effect.FunctionValue{Tag: fv.Tag, Percent: fv.Percent * (1 - t)},
		}
	default:
		// from == nil, or the two sides target different function tags:
		// to contributes t*value as it fades in.
		return &effect.Assignment{
			Kind: effect.KindFunction, TargetID: base.TargetID, Effect: base.Effect,
			Value: effect.FunctionValue{Tag: tv.Tag, Percent: tv.Percent * t},
		}
	}
}

func colorValue(a *effect.Assignment) (color.HSL, bool) {
	if a == nil {
		return color.HSL{}, false
	}
	v, ok := a.Value.(color.HSL)
	return v, ok
}

func fadeColor(from, to *effect.Assignment, t float64) *effect.Assignment {
	base := baseOf(from, to)
	fv, fok := colorValue(from)
	tv, tok := colorValue(to)

	switch {
	case fok && tok:
		return &effect.Assignment{Kind: effect.KindColor, TargetID: base.TargetID, Effect: base.Effect, Value: color.Blend(fv, tv, t)}
	case fok && !tok:
		return &effect.Assignment{Kind: effect.KindColor, TargetID: base.TargetID, Effect: base.Effect, Value: color.Blend(fv, color.Darken(fv), t)}
	case !fok && tok:
		return &effect.Assignment{Kind: effect.KindColor, TargetID: base.TargetID, Effect: base.Effect, Value: color.Blend(color.Darken(tv), tv, t)}
	default:
		return nil
	}
}

func vec3Value(a *effect.Assignment) (spatial.Vec3, bool) {
	if a == nil {
		return spatial.Vec3{}, false
	}
	v, ok := a.Value.(spatial.Vec3)
	return v, ok
}

// neutralDirection is "straight down" (below the fixture), the null side
// of a pan-tilt fade per spec §4.7.
var neutralDirection = spatial.Vec3{X: 0, Y: -1, Z: 0}

func fadePanTilt(from, to *effect.Assignment, t float64, ctx Context) *effect.Assignment {
	base := baseOf(from, to)
	fv := panTiltToDirection(from)
	tv := panTiltToDirection(to)
	if from == nil {
		fv = neutralDirection
	}
	if to == nil {
		tv = neutralDirection
	}
	dir := spatial.Slerp(fv, tv, t)
	pan, tilt := directionToPanTilt(dir, ctx)
	return &effect.Assignment{Kind: effect.KindPanTilt, TargetID: base.TargetID, Effect: base.Effect, Value: effect.PanTilt{PanAngle: pan, TiltAngle: tilt}}
}

func panTiltToDirection(a *effect.Assignment) spatial.Vec3 {
	if a == nil {
		return neutralDirection
	}
	pt, ok := a.Value.(effect.PanTilt)
	if !ok {
		return neutralDirection
	}
	return spatial.Vec3{
		X: math.Sin(pt.PanAngle) * math.Cos(pt.TiltAngle),
		Y: -math.Sin(pt.TiltAngle),
		Z: math.Cos(pt.PanAngle) * math.Cos(pt.TiltAngle),
	}
}

func directionToPanTilt(dir spatial.Vec3, ctx Context) (pan, tilt float64) {
	rotation := spatial.Identity()
	if ctx.Head != nil {
		rotation = ctx.Head.Rotation
	}
	return spatial.DirectionToPanTilt(dir, rotation)
}

func fadeDirection(from, to *effect.Assignment, t float64, ctx Context) *effect.Assignment {
	base := baseOf(from, to)
	neutral := directionToOrigin(ctx)

	fv, fok := vec3Value(from)
	tv, tok := vec3Value(to)
	if !fok {
		fv = neutral
	}
	if !tok {
		tv = neutral
	}
	return &effect.Assignment{Kind: effect.KindDirection, TargetID: base.TargetID, Effect: base.Effect, Value: spatial.Slerp(fv, tv, t)}
}

func directionToOrigin(ctx Context) spatial.Vec3 {
	if ctx.Head == nil {
		return spatial.Vec3{X: 0, Y: 0, Z: -1}
	}
	return spatial.Vec3{}.Sub(ctx.Head.Position).Normalize()
}

// floorPoint is the default "point below the fixture on the floor plane"
// used as the null side of an aim fade (spec §4.7).
func floorPoint(ctx Context) spatial.Vec3 {
	if ctx.Head == nil {
		return spatial.Vec3{}
	}
	return spatial.Vec3{X: ctx.Head.Position.X, Y: 0, Z: ctx.Head.Position.Z}
}

func fadeAim(from, to *effect.Assignment, t float64, ctx Context) *effect.Assignment {
	base := baseOf(from, to)
	neutral := floorPoint(ctx)

	fv, fok := vec3Value(from)
	tv, tok := vec3Value(to)
	if !fok {
		fv = neutral
	}
	if !tok {
		tv = neutral
	}
	return &effect.Assignment{Kind: effect.KindAim, TargetID: base.TargetID, Effect: base.Effect, Value: fv.Lerp(tv, t)}
}
