// Package effect implements the effect/assigner abstraction of spec §3/§4.6:
// an Effect is a running, temporally-parameterized contributor to a frame,
// and an Assigner is its per-frame typed request to set a value on a
// target. It generalizes the teacher's effect.Effect
// (effect/effect.go), which drove a single ease.Function over a
// Time/Duration/Speed triple, into a full building → running → ending →
// ended lifecycle with fade-in/fade-out envelopes — the fade envelopes
// still use ease.Function the same way the teacher's Effect.Update does.
package effect

import (
	"time"

	"github.com/fogleman/ease"
	"github.com/robmorgan/lumen/rhythm"
)

// State is an Effect's position in its lifecycle (spec §4.6).
type State int

const (
	// StateBuilding is the initial state, before the effect has produced
	// its first frame.
	StateBuilding State = iota
	// StateRunning is the steady-running state.
	StateRunning
	// StateEnding is entered once End has been requested and a fade-out is
	// in progress.
	StateEnding
	// StateEnded is terminal: the effect contributes nothing further and
	// is eligible for removal from the active-effects list.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateRunning:
		return "running"
	case StateEnding:
		return "ending"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// GenResult is what a Generator produces for one frame: the assigners to
// fold into this frame, and whether the effect has naturally run its
// course (a one-shot effect signaling completion without an explicit End
// call).
type GenResult struct {
	Assigners []Assigner
	Done      bool
}

// Generator is the user-supplied per-frame body of an Effect.
type Generator func(ctx ShowContext, snapshot rhythm.Snapshot) GenResult

// VariableBinding resolves a named value bound to an effect at the
// current snapshot, generalizing a constant into the live, host-settable
// values described in SPEC_FULL.md's variable-bindings expansion.
type VariableBinding func(ctx ShowContext, snapshot rhythm.Snapshot) interface{}

// Effect is a running contributor to the show, per spec §4.6. The zero
// value is not usable; construct with New.
type Effect struct {
	id       string
	name     string
	priority int
	sequence uint64

	variables map[string]VariableBinding

	fadeInDuration  time.Duration
	fadeOutDuration time.Duration
	fadeInEase      ease.Function
	fadeOutEase     ease.Function

	generator Generator

	state          State
	startedAt      time.Time
	endRequestedAt time.Time
	selfDone       bool
}

// Option configures an Effect at construction time.
type Option func(*Effect)

// WithName sets a human-readable name, for diagnostics and UIs.
func WithName(name string) Option { return func(e *Effect) { e.name = name } }

// WithFadeIn sets the fade-in envelope duration and easing curve. The
// default easing is ease.Linear.
func WithFadeIn(d time.Duration, fn ease.Function) Option {
	return func(e *Effect) {
		e.fadeInDuration = d
		if fn != nil {
			e.fadeInEase = fn
		}
	}
}

// WithFadeOut sets the fade-out envelope duration and easing curve.
func WithFadeOut(d time.Duration, fn ease.Function) Option {
	return func(e *Effect) {
		e.fadeOutDuration = d
		e.fadeOutEase = fn
	}
}

// WithVariable binds a named, live-resolvable value to the effect.
func WithVariable(name string, binding VariableBinding) Option {
	return func(e *Effect) {
		if e.variables == nil {
			e.variables = make(map[string]VariableBinding)
		}
		e.variables[name] = binding
	}
}

// New creates an Effect with the given stable id, priority, and insertion
// sequence (the renderer's active-effects list sorts by priority then
// sequence, per spec §4.7/§4.10).
func New(id string, priority int, sequence uint64, generator Generator, opts ...Option) *Effect {
	e := &Effect{
		id:          id,
		name:        id,
		priority:    priority,
		sequence:    sequence,
		generator:   generator,
		fadeInEase:  ease.Linear,
		fadeOutEase: ease.Linear,
		state:       StateBuilding,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the effect's stable identifier.
func (e *Effect) ID() string { return e.id }

// Name returns the effect's display name.
func (e *Effect) Name() string { return e.name }

// Priority returns the effect's composition priority: within a (kind,
// target) group, lower-priority assigners fold first.
func (e *Effect) Priority() int { return e.priority }

// Sequence returns the effect's insertion-order tiebreaker.
func (e *Effect) Sequence() uint64 { return e.sequence }

// SetSequence overrides the insertion-order tiebreaker. The renderer calls
// this on submission so that insertion order is authoritatively assigned
// by the show, not by whatever value the caller happened to construct the
// effect with.
func (e *Effect) SetSequence(seq uint64) { e.sequence = seq }

// SetPriority overrides the effect's composition priority.
func (e *Effect) SetPriority(priority int) { e.priority = priority }

// State returns the effect's current lifecycle state.
func (e *Effect) State() State { return e.state }

// Variable resolves a bound variable by name at the given snapshot.
func (e *Effect) Variable(ctx ShowContext, snapshot rhythm.Snapshot, name string) (interface{}, bool) {
	binding, ok := e.variables[name]
	if !ok {
		return nil, false
	}
	return binding(ctx, snapshot), true
}

// SetVariable rebinds a named value. It is safe to call between frames
// (the renderer drains variable-update commands before generating a
// frame, per spec §5).
func (e *Effect) SetVariable(name string, binding VariableBinding) {
	if e.variables == nil {
		e.variables = make(map[string]VariableBinding)
	}
	e.variables[name] = binding
}

// StillActive reports whether the effect has any contribution remaining
// (spec §4.6 still-active?). False once the effect has fully ended.
func (e *Effect) StillActive(ctx ShowContext, snapshot rhythm.Snapshot) bool {
	return e.state != StateEnded
}

// Generate asks the effect for this frame's assigners (spec §4.6
// generate). The first call transitions the effect from building to
// running. A generator that reports GenResult.Done drives the same
// running → ending (or running → ended, with no fade-out configured)
// transition End would (spec §3 "effects only request transitions via
// return values", §9): a self-completing one-shot effect must fade out
// and be removed on its own, without the host ever calling End. Panic
// isolation for the generator call is the renderer's responsibility
// (spec §7), not this method's — a misbehaving generator must not be
// allowed to corrupt Effect's own lifecycle bookkeeping, so the caller
// recovers around the call to Generate itself.
func (e *Effect) Generate(ctx ShowContext, snapshot rhythm.Snapshot) []Assigner {
	if e.state == StateBuilding {
		e.startedAt = snapshot.Instant()
		e.state = StateRunning
	}
	if e.state == StateEnded {
		return nil
	}
	result := e.generator(ctx, snapshot)
	e.selfDone = result.Done
	if e.selfDone && e.state == StateRunning {
		e.beginEnding(snapshot)
	}
	if e.state == StateEnding && snapshot.Instant().Sub(e.endRequestedAt) >= e.fadeOutDuration {
		e.state = StateEnded
	}
	return result.Assigners
}

// Kill forces the effect directly to StateEnded, bypassing any configured
// fade-out (spec §5 "a forced kill skips fade-out").
func (e *Effect) Kill() { e.state = StateEnded }

// beginEnding starts graceful shutdown from the running state: straight to
// StateEnded with no fade-out configured, otherwise StateEnding with the
// fade-out window starting now. Shared by End (host-requested) and
// Generate (effect-requested via GenResult.Done).
func (e *Effect) beginEnding(snapshot rhythm.Snapshot) {
	e.endRequestedAt = snapshot.Instant()
	if e.fadeOutDuration <= 0 {
		e.state = StateEnded
		return
	}
	e.state = StateEnding
}

// End asks the effect to begin graceful shutdown (spec §4.6 end). It may
// be called repeatedly; it returns true once the effect has fully ended,
// which may happen immediately (no fade-out configured) or on a later
// call once the fade-out window has elapsed.
func (e *Effect) End(ctx ShowContext, snapshot rhythm.Snapshot) bool {
	switch e.state {
	case StateEnded:
		return true
	case StateEnding:
		if snapshot.Instant().Sub(e.endRequestedAt) >= e.fadeOutDuration {
			e.state = StateEnded
			return true
		}
		return false
	default:
		e.beginEnding(snapshot)
		return e.state == StateEnded
	}
}

// FadeInFraction reports whether the effect is within its fade-in window
// and, if so, the eased fraction through it (0 at the start, 1 once
// complete), for the renderer's per-assignment fold (spec §4.10 step 4).
func (e *Effect) FadeInFraction(snapshot rhythm.Snapshot) (fraction float64, active bool) {
	if e.fadeInDuration <= 0 || e.state != StateRunning {
		return 1, false
	}
	elapsed := snapshot.Instant().Sub(e.startedAt)
	if elapsed >= e.fadeInDuration {
		return 1, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	t := float64(elapsed) / float64(e.fadeInDuration)
	return e.fadeInEase(t), true
}

// FadeOutFraction reports whether the effect is within its fade-out
// window and, if so, the eased fraction through it.
func (e *Effect) FadeOutFraction(snapshot rhythm.Snapshot) (fraction float64, active bool) {
	if e.state != StateEnding || e.fadeOutDuration <= 0 {
		return 1, false
	}
	elapsed := snapshot.Instant().Sub(e.endRequestedAt)
	if elapsed >= e.fadeOutDuration {
		return 1, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	t := float64(elapsed) / float64(e.fadeOutDuration)
	return e.fadeOutEase(t), true
}
