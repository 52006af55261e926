// Package param implements the parameter system of spec §3/§4.5: a
// Parameter[T] is either a constant or a pure resolver of
// (show, snapshot, head) → T. It generalizes the teacher's
// multicue/effect package (whose Effect drove a single ease.Function
// curve and whose oscillator.go built fixed sawtooth shape functions) into
// a reusable, generically-typed parameter algebra that any effect or
// assigner can hold and evaluates when its generator or producer runs.
package param

import (
	"github.com/robmorgan/lumen/effect"
	"github.com/robmorgan/lumen/fixture"
	"github.com/robmorgan/lumen/rhythm"
)

// Resolver computes a parameter's value at a given instant. It must be a
// pure function of its arguments (spec §5): no side effects, and the same
// inputs always produce the same output.
type Resolver[T any] func(ctx effect.ShowContext, snapshot rhythm.Snapshot, head *fixture.Head) T

// Parameter is either a constant T or a Resolver[T]. The zero value
// resolves to the zero value of T.
type Parameter[T any] struct {
	constant   T
	isConstant bool
	resolver   Resolver[T]
}

// Const wraps a fixed value as a Parameter.
func Const[T any](v T) Parameter[T] {
	return Parameter[T]{constant: v, isConstant: true}
}

// FromResolver wraps a resolver function as a Parameter.
func FromResolver[T any](fn Resolver[T]) Parameter[T] {
	return Parameter[T]{resolver: fn}
}

// IsConstant reports whether the parameter was built with Const.
func (p Parameter[T]) IsConstant() bool { return p.isConstant }

// Value resolves the parameter at the given instant.
func (p Parameter[T]) Value(ctx effect.ShowContext, snapshot rhythm.Snapshot, head *fixture.Head) T {
	if p.isConstant || p.resolver == nil {
		return p.constant
	}
	return p.resolver(ctx, snapshot, head)
}

// Map builds a transformed parameter: one whose value is fn applied to
// p's resolved value, resolved fresh every time (spec §4.5 "transformed
// parameters").
func Map[T, U any](p Parameter[T], fn func(T) U) Parameter[U] {
	return FromResolver(func(ctx effect.ShowContext, snapshot rhythm.Snapshot, head *fixture.Head) U {
		return fn(p.Value(ctx, snapshot, head))
	})
}

// Combine2 builds a parameter out of two others, resolving both and
// combining them with fn — the general shape behind the float64
// arithmetic helpers below.
func Combine2[A, B, R any](a Parameter[A], b Parameter[B], fn func(A, B) R) Parameter[R] {
	return FromResolver(func(ctx effect.ShowContext, snapshot rhythm.Snapshot, head *fixture.Head) R {
		return fn(a.Value(ctx, snapshot, head), b.Value(ctx, snapshot, head))
	})
}

// Add returns a parameter whose value is a+b each frame.
func Add(a, b Parameter[float64]) Parameter[float64] {
	return Combine2(a, b, func(x, y float64) float64 { return x + y })
}

// Scale returns a parameter whose value is p's value times factor.
func Scale(p Parameter[float64], factor float64) Parameter[float64] {
	return Map(p, func(v float64) float64 { return v * factor })
}

// Clamp returns a parameter whose value is p's value clamped to [lo, hi].
func Clamp(p Parameter[float64], lo, hi float64) Parameter[float64] {
	return Map(p, func(v float64) float64 { return ClampValue(v, lo, hi) })
}
