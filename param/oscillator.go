package param

import (
	"math"

	"github.com/robmorgan/lumen/effect"
	"github.com/robmorgan/lumen/fixture"
	"github.com/robmorgan/lumen/rhythm"
)

// PhaseSource reads a phase in [0, 1) off a snapshot. BeatPhase, BarPhase,
// and PhrasePhase are the three musical-time sources an oscillator
// parameter can ride (spec §4.5).
type PhaseSource func(snapshot rhythm.Snapshot) float64

// BeatPhase rides the metronome's beat phase.
func BeatPhase(snapshot rhythm.Snapshot) float64 { return snapshot.BeatPhase() }

// BarPhase rides the metronome's bar phase.
func BarPhase(snapshot rhythm.Snapshot) float64 { return snapshot.BarPhase() }

// PhrasePhase rides the metronome's phrase phase.
func PhrasePhase(snapshot rhythm.Snapshot) float64 { return snapshot.PhrasePhase() }

// Waveform maps a phase in [0, 1) to a shape value in [0, 1].
type Waveform func(phase float64) float64

// Sine is a sine wave normalized to [0, 1], peaking at phase 0.25.
func Sine(phase float64) float64 {
	return (math.Sin(2*math.Pi*phase) + 1) / 2
}

// Triangle rises from 0 to 1 over the first half of the phase and falls
// back to 0 over the second half.
func Triangle(phase float64) float64 {
	if phase < 0.5 {
		return phase * 2
	}
	return 2 - phase*2
}

// Square is 1 for the first half of the phase and 0 for the second.
func Square(phase float64) float64 {
	if phase < 0.5 {
		return 1
	}
	return 0
}

// BuildSawtooth returns a sawtooth wave shape function, generalizing the
// teacher's BuildFixedSawtoothShapeFn (multicue/effect/oscillator.go) to
// either direction: rising (phase itself) or falling (1-phase).
func BuildSawtooth(down bool) Waveform {
	if down {
		return func(phase float64) float64 { return 1 - phase }
	}
	return func(phase float64) float64 { return phase }
}

// Oscillate builds a parameter that rides the given phase source through
// the given waveform, scaled into [low, high].
func Oscillate(source PhaseSource, wave Waveform, low, high float64) Parameter[float64] {
	return FromResolver(func(ctx effect.ShowContext, snapshot rhythm.Snapshot, head *fixture.Head) float64 {
		shape := wave(source(snapshot))
		return low + shape*(high-low)
	})
}
