package ext

import (
	"fmt"
	"sync"

	"github.com/robmorgan/lumen/effect"
)

// KindMetric is the extension kind an effect assigns to tee a numeric
// value into the live metrics record every frame (§6 Metrics), the second
// concrete extension shipped to exercise the registry end to end.
const KindMetric effect.Kind = "metric"

// MetricTarget addresses one named metric.
type MetricTarget struct {
	Name string
}

// MetricsBuffer accumulates metric writes for one frame.
type MetricsBuffer struct {
	mu     sync.Mutex
	values map[string]float64
}

// Reset clears the buffer at the start of a frame.
func (b *MetricsBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = make(map[string]float64)
}

// Values returns a snapshot of the buffer's accumulated writes.
func (b *MetricsBuffer) Values() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]float64, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

func (b *MetricsBuffer) set(name string, value float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.values == nil {
		b.values = make(map[string]float64)
	}
	b.values[name] = value
}

// NewMetricsExtension builds the metrics-export extension. onSend is
// called with the frame's exported metric values once resolution
// completes. The spec's ring-buffer metrics record (§6) has no matching
// shape in any pack dependency (no Prometheus-style client is imported by
// the teacher or the rest of the pack), so it stays a bespoke struct
// rather than adopting an unrelated metrics library just to have one.
func NewMetricsExtension(onSend func(values map[string]float64)) *Extension {
	return &Extension{
		Key:   "metric",
		Kinds: []effect.Kind{KindMetric},
		NewBuffer: func() Buffer {
			return &MetricsBuffer{values: make(map[string]float64)}
		},
		Resolvers: map[effect.Kind]Resolver{
			KindMetric: func(buf Buffer, a *effect.Assignment) error {
				mb, ok := buf.(*MetricsBuffer)
				if !ok {
					return fmt.Errorf("render/ext: metrics extension given wrong buffer type")
				}
				target, ok := a.TargetID.(MetricTarget)
				if !ok {
					return fmt.Errorf("render/ext: metric assignment target must be a MetricTarget")
				}
				value, ok := a.Value.(float64)
				if !ok {
					return fmt.Errorf("render/ext: metric assignment value must be a float64")
				}
				mb.set(target.Name, value)
				return nil
			},
		},
		FadeFns: map[effect.Kind]FadeFunc{
			KindMetric: func(from, to *effect.Assignment, t float64) *effect.Assignment {
				if t <= 0 {
					return from
				}
				if t >= 1 {
					return to
				}
				var fv, tv float64
				if from != nil {
					fv, _ = from.Value.(float64)
				}
				if to != nil {
					tv, _ = to.Value.(float64)
				}
				base := from
				if base == nil {
					base = to
				}
				v := fv + (tv-fv)*t
				return &effect.Assignment{Kind: base.Kind, TargetID: base.TargetID, Value: v, Effect: base.Effect}
			},
		},
		SendHook: func(buf Buffer) {
			if onSend == nil {
				return
			}
			mb, ok := buf.(*MetricsBuffer)
			if !ok {
				return
			}
			onSend(mb.Values())
		},
	}
}
