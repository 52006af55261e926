// Package rhythm implements the shared musical clock (spec §4.1): a
// Metronome produces ordered, immutable Snapshots of beat/bar/phrase
// position that every effect in a frame reads. It generalizes the teacher's
// rhythm.Metronome (rhythm/metronome.go), whose marker-number/marker-phase
// math is ported from
// https://github.com/Deep-Symmetry/electro/blob/main/src/main/java/org/deepsymmetry/electro/Metronome.java,
// onto a pluggable clock.Clock so tests can drive it with a fake clock
// instead of wall time.
package rhythm

import (
	"math"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// SyncSource supplies an externally-derived tempo, e.g. tapped MIDI clock
// or OSC beat messages. Tempo returns false when it has no opinion yet.
type SyncSource interface {
	Tempo() (bpm float64, ok bool)
}

// Metronome is the shared musical clock. The zero value is not usable; use
// New.
type Metronome struct {
	mu    sync.Mutex
	clock clock.Clock

	startTime     time.Time
	tempo         float64
	beatsPerBar   int
	barsPerPhrase int

	taps []time.Time
}

// Option configures a Metronome at construction time.
type Option func(*Metronome)

// WithBPM sets the initial tempo. Default 120.
func WithBPM(bpm float64) Option { return func(m *Metronome) { m.tempo = bpm } }

// WithBarsPerPhrase sets the phrase length in bars. Default 8.
func WithBarsPerPhrase(bars int) Option { return func(m *Metronome) { m.barsPerPhrase = bars } }

// WithBeatsPerBar sets the bar length in beats. Default 4.
func WithBeatsPerBar(beats int) Option { return func(m *Metronome) { m.beatsPerBar = beats } }

// New creates a Metronome ticking against the given clock.
func New(c clock.Clock, opts ...Option) *Metronome {
	m := &Metronome{
		clock:         c,
		startTime:     c.Now(),
		tempo:         120.0,
		beatsPerBar:   4,
		barsPerPhrase: 8,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot captures the current instant as an immutable Snapshot. All
// effects evaluated within one render frame must share a single Snapshot
// (spec §3, §9) so they never observe a torn read of the clock.
func (m *Metronome) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newSnapshot(m.clock.Now(), m.startTime, m.tempo, m.beatsPerBar, m.barsPerPhrase)
}

// Tempo returns the metronome's current tempo in BPM.
func (m *Metronome) Tempo() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tempo
}

// SetBPM sets a new tempo. The start time is adjusted so the current beat
// and phase are unaffected by the tempo change, exactly as the teacher's
// Metronome.SetTempo does.
func (m *Metronome) SetBPM(bpm float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setBPMLocked(bpm)
}

func (m *Metronome) setBPMLocked(bpm float64) {
	instant := m.clock.Now()
	interval := beatsToMillis(1, m.tempo)
	beat := markerNumber(instant, m.startTime, interval)
	phase := markerPhase(instant, m.startTime, interval)
	newInterval := beatsToMillis(1, bpm)
	m.startTime = instant.Add(-time.Duration(math.Round(newInterval * (phase + float64(beat) - 1) * float64(time.Millisecond))))
	m.tempo = bpm
}

// TapTempo registers a tap and, once enough taps have accumulated, derives a
// new tempo from the average interval between the last few taps.
func (m *Metronome) TapTempo() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.taps = append(m.taps, now)
	const window = 8
	if len(m.taps) > window {
		m.taps = m.taps[len(m.taps)-window:]
	}
	if len(m.taps) < 2 {
		return
	}

	total := m.taps[len(m.taps)-1].Sub(m.taps[0])
	avg := total / time.Duration(len(m.taps)-1)
	if avg <= 0 {
		return
	}
	m.setBPMLocked(60.0 / avg.Seconds())
}

// Sync applies an external tempo source's current opinion, if it has one.
func (m *Metronome) Sync(src SyncSource) {
	if src == nil {
		return
	}
	if bpm, ok := src.Tempo(); ok {
		m.SetBPM(bpm)
	}
}

func beatsToMillis(beats int, bpm float64) float64 {
	return (60000.0 / bpm) * float64(beats)
}

func markerNumber(instant, start time.Time, intervalMs float64) int64 {
	return int64(math.Floor(instant.Sub(start).Seconds()*1000/intervalMs)) + 1
}

func markerPhase(instant, start time.Time, intervalMs float64) float64 {
	ratio := instant.Sub(start).Seconds() * 1000 / intervalMs
	return ratio - math.Floor(ratio)
}
