package ext

import (
	"fmt"
	"sync"

	"github.com/robmorgan/lumen/effect"
)

// KindVariable is the extension kind an effect assigns to set a named show
// variable instead of a DMX value, the natural complement of
// set-variable/get-variable (spec §6).
const KindVariable effect.Kind = "variable"

// VariableTarget addresses one named show variable.
type VariableTarget struct {
	Name string
}

// VariableBuffer accumulates variable writes for one frame; SendBuffer
// hands them to the show's variable store.
type VariableBuffer struct {
	mu     sync.Mutex
	values map[string]interface{}
}

// Reset clears the buffer at the start of a frame.
func (b *VariableBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = make(map[string]interface{})
}

// Values returns a snapshot of the buffer's accumulated writes.
func (b *VariableBuffer) Values() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]interface{}, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

func (b *VariableBuffer) set(name string, value interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.values == nil {
		b.values = make(map[string]interface{})
	}
	b.values[name] = value
}

// NewVariableExtension builds the variable-assignment extension. onSend is
// called with the frame's accumulated variable writes once resolution
// completes, so the host (render.Show) can apply them to its variable
// store.
func NewVariableExtension(onSend func(values map[string]interface{})) *Extension {
	return &Extension{
		Key:   "variable",
		Kinds: []effect.Kind{KindVariable},
		NewBuffer: func() Buffer {
			return &VariableBuffer{values: make(map[string]interface{})}
		},
		Resolvers: map[effect.Kind]Resolver{
			KindVariable: func(buf Buffer, a *effect.Assignment) error {
				vb, ok := buf.(*VariableBuffer)
				if !ok {
					return fmt.Errorf("render/ext: variable extension given wrong buffer type")
				}
				target, ok := a.TargetID.(VariableTarget)
				if !ok {
					return fmt.Errorf("render/ext: variable assignment target must be a VariableTarget")
				}
				vb.set(target.Name, a.Value)
				return nil
			},
		},
		FadeFns: map[effect.Kind]FadeFunc{
			// A variable has no natural "in between" value across a
			// fade window; it snaps at the midpoint, like any other
			// unrecognized extension kind (spec §4.7).
		},
		SendHook: func(buf Buffer) {
			if onSend == nil {
				return
			}
			vb, ok := buf.(*VariableBuffer)
			if !ok {
				return
			}
			onSend(vb.Values())
		},
	}
}
