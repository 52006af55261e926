// Package ext implements the extension registry of spec §2 item 10/§4.11:
// a way to register assignment kinds beyond DMX, each with its own
// resolver, fade function, per-frame buffer, and empty/send hooks. It has
// no equivalent in the teacher, which never needed anything beyond raw DMX
// writes; the registry's shape (a table keyed by kind, dispatched during
// resolution) follows spec §9's "polymorphism over assignment kinds"
// design note.
package ext

import (
	"fmt"

	"github.com/robmorgan/lumen/effect"
)

// Buffer is a per-frame scratch space an extension owns. EmptyBuffer resets
// it at the start of a frame; SendBuffer flushes it at the end, mirroring
// the universe buffer lifecycle in spec §4.10 steps 2 and 6.
type Buffer interface {
	Reset()
}

// Resolver writes a resolved Assignment of the extension's kind into the
// extension's buffer (spec §4.9 "the extension's registered resolver is
// called with the Assignment and the extension's own per-frame buffer").
type Resolver func(buf Buffer, a *effect.Assignment) error

// FadeFunc blends two Assignments of the extension's kind by fraction t,
// the extension's equivalent of render/fade's per-kind fade functions.
type FadeFunc func(from, to *effect.Assignment, t float64) *effect.Assignment

// Extension is one registered assignment kind beyond the built-ins.
type Extension struct {
	Key   string
	Kinds []effect.Kind

	Resolvers map[effect.Kind]Resolver
	FadeFns   map[effect.Kind]FadeFunc

	NewBuffer func() Buffer
	EmptyHook func(buf Buffer)
	SendHook  func(buf Buffer)
}

// Registry holds every registered Extension, keyed by kind for resolution
// dispatch and by registration key for the per-extension hooks and
// resolution sub-order.
type Registry struct {
	byKind    map[effect.Kind]*Extension
	byKey     map[string]*Extension
	order     []string
	subOrders map[string][]effect.Kind
	buffers   map[string]Buffer
}

// NewRegistry returns an empty extension registry.
func NewRegistry() *Registry {
	return &Registry{
		byKind:    make(map[effect.Kind]*Extension),
		byKey:     make(map[string]*Extension),
		subOrders: make(map[string][]effect.Kind),
		buffers:   make(map[string]Buffer),
	}
}

// Register adds an extension (spec §6 register-extension). It is an error
// to register a kind that is already claimed, by this or another
// extension.
func (r *Registry) Register(e *Extension) error {
	for _, k := range e.Kinds {
		if _, ok := r.byKind[k]; ok {
			return fmt.Errorf("render/ext: kind %q already registered", k)
		}
	}
	for _, k := range e.Kinds {
		r.byKind[k] = e
	}
	r.byKey[e.Key] = e
	r.order = append(r.order, e.Key)
	r.subOrders[e.Key] = append([]effect.Kind(nil), e.Kinds...)
	if e.NewBuffer != nil {
		r.buffers[e.Key] = e.NewBuffer()
	}
	return nil
}

// SetResolutionOrder overrides the sub-order in which an extension's own
// kinds resolve relative to one another (spec §4.8 "Extension kinds
// declare their own sub-order via set-extension-resolution-order").
func (r *Registry) SetResolutionOrder(key string, kinds []effect.Kind) error {
	if _, ok := r.byKey[key]; !ok {
		return fmt.Errorf("render/ext: unknown extension key %q", key)
	}
	r.subOrders[key] = kinds
	return nil
}

// ExtensionKinds returns every registered extension kind, in a stable
// order: extensions in registration order, each extension's own kinds in
// its configured sub-order.
func (r *Registry) ExtensionKinds() []effect.Kind {
	var out []effect.Kind
	for _, key := range r.order {
		out = append(out, r.subOrders[key]...)
	}
	return out
}

// Lookup returns the extension registered for a kind, if any.
func (r *Registry) Lookup(kind effect.Kind) (*Extension, bool) {
	e, ok := r.byKind[kind]
	return e, ok
}

// EmptyBuffers resets every extension's buffer and runs its empty-buffer
// hook, at the start of a frame.
func (r *Registry) EmptyBuffers() {
	for _, key := range r.order {
		e := r.byKey[key]
		buf := r.buffers[key]
		if buf != nil {
			buf.Reset()
		}
		if e.EmptyHook != nil {
			e.EmptyHook(buf)
		}
	}
}

// SendBuffers runs every extension's send-buffer hook, at the end of a
// frame.
func (r *Registry) SendBuffers() {
	for _, key := range r.order {
		e := r.byKey[key]
		if e.SendHook != nil {
			e.SendHook(r.buffers[key])
		}
	}
}

// Resolve dispatches a resolved Assignment to its extension's resolver.
func (r *Registry) Resolve(a *effect.Assignment) error {
	e, ok := r.byKind[a.Kind]
	if !ok {
		return fmt.Errorf("render/ext: no extension registered for kind %q", a.Kind)
	}
	resolver, ok := e.Resolvers[a.Kind]
	if !ok {
		return fmt.Errorf("render/ext: extension %q has no resolver for kind %q", e.Key, a.Kind)
	}
	return resolver(r.buffers[e.Key], a)
}

// Fade dispatches a fade between two Assignments of an extension kind to
// the extension's fade function, falling back to a step at the midpoint
// (spec §4.7 "for unrecognized (extension) kinds: step at 0.5") when the
// extension declares none.
func (r *Registry) Fade(kind effect.Kind, from, to *effect.Assignment, t float64) (*effect.Assignment, error) {
	if err := effect.CheckMatch(from, to); err != nil {
		return nil, err
	}
	e, ok := r.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("render/ext: no extension registered for kind %q", kind)
	}
	if fn, ok := e.FadeFns[kind]; ok && fn != nil {
		return fn(from, to, t), nil
	}
	if t < 0.5 {
		return from, nil
	}
	return to, nil
}
