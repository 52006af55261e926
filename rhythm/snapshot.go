package rhythm

import (
	"fmt"
	"math"
	"time"
)

// Snapshot is an immutable record of musical time, per spec §3/§4.1. It
// generalizes the teacher's rhythm.Snapshot interface (rhythm/snapshot.go)
// into a concrete value type, since every frame needs exactly one of these
// and passing it by value (rather than behind an interface) is how the
// renderer guarantees every effect sees the identical instant.
type Snapshot struct {
	instant       time.Time
	startTime     time.Time
	tempo         float64
	beatsPerBar   int
	barsPerPhrase int

	beatInterval   float64
	barInterval    float64
	phraseInterval float64
}

func newSnapshot(instant, start time.Time, tempo float64, beatsPerBar, barsPerPhrase int) Snapshot {
	beatInterval := beatsToMillis(1, tempo)
	return Snapshot{
		instant:        instant,
		startTime:      start,
		tempo:          tempo,
		beatsPerBar:    beatsPerBar,
		barsPerPhrase:  barsPerPhrase,
		beatInterval:   beatInterval,
		barInterval:    beatInterval * float64(beatsPerBar),
		phraseInterval: beatInterval * float64(beatsPerBar) * float64(barsPerPhrase),
	}
}

// Instant is the point in time the snapshot was computed at.
func (s Snapshot) Instant() time.Time { return s.instant }

// Tempo is the metronome's tempo, in BPM, at the time of the snapshot.
func (s Snapshot) Tempo() float64 { return s.tempo }

// BeatsPerBar is the metronome's bar length in beats.
func (s Snapshot) BeatsPerBar() int { return s.beatsPerBar }

// BarsPerPhrase is the metronome's phrase length in bars.
func (s Snapshot) BarsPerPhrase() int { return s.barsPerPhrase }

// BeatInterval is the metronome's beat length in milliseconds.
func (s Snapshot) BeatInterval() float64 { return s.beatInterval }

// BarInterval is the metronome's bar length in milliseconds.
func (s Snapshot) BarInterval() float64 { return s.barInterval }

// PhraseInterval is the metronome's phrase length in milliseconds.
func (s Snapshot) PhraseInterval() float64 { return s.phraseInterval }

// Beat is the 1-based beat number at the time of the snapshot.
func (s Snapshot) Beat() int64 { return markerNumber(s.instant, s.startTime, s.beatInterval) }

// Bar is the 1-based bar number at the time of the snapshot.
func (s Snapshot) Bar() int64 { return markerNumber(s.instant, s.startTime, s.barInterval) }

// Phrase is the 1-based phrase number at the time of the snapshot.
func (s Snapshot) Phrase() int64 { return markerNumber(s.instant, s.startTime, s.phraseInterval) }

// BeatPhase is the fractional position within the current beat, in [0,1).
func (s Snapshot) BeatPhase() float64 { return markerPhase(s.instant, s.startTime, s.beatInterval) }

// BarPhase is the fractional position within the current bar, in [0,1).
func (s Snapshot) BarPhase() float64 { return markerPhase(s.instant, s.startTime, s.barInterval) }

// PhrasePhase is the fractional position within the current phrase, in
// [0,1).
func (s Snapshot) PhrasePhase() float64 {
	return markerPhase(s.instant, s.startTime, s.phraseInterval)
}

// TimeOfBeat returns the timestamp at which the given beat will occur (or
// did occur, for beats in the past).
func (s Snapshot) TimeOfBeat(beat int64) time.Time {
	return s.startTime.Add(time.Duration(float64(beat-1) * s.beatInterval * float64(time.Millisecond)))
}

// TimeOfBar returns the timestamp at which the given bar will occur.
func (s Snapshot) TimeOfBar(bar int64) time.Time {
	return s.startTime.Add(time.Duration(float64(bar-1) * s.barInterval * float64(time.Millisecond)))
}

// TimeOfPhrase returns the timestamp at which the given phrase will occur.
func (s Snapshot) TimeOfPhrase(phrase int64) time.Time {
	return s.startTime.Add(time.Duration(float64(phrase-1) * s.phraseInterval * float64(time.Millisecond)))
}

// BeatWithinBar returns the 1-based beat number relative to the start of
// the current bar.
func (s Snapshot) BeatWithinBar() int {
	return int(mod64(s.Beat()-1, int64(s.beatsPerBar))) + 1
}

// IsDownBeat reports whether the current beat is the first beat of its bar.
func (s Snapshot) IsDownBeat() bool { return s.BeatWithinBar() == 1 }

// BeatWithinPhrase returns the 1-based beat number relative to the start of
// the current phrase.
func (s Snapshot) BeatWithinPhrase() int {
	beatsPerPhrase := int64(s.beatsPerBar * s.barsPerPhrase)
	return int(mod64(s.Beat()-1, beatsPerPhrase)) + 1
}

// IsPhraseStart reports whether the current beat is the first beat of its
// phrase.
func (s Snapshot) IsPhraseStart() bool { return s.BeatWithinPhrase() == 1 }

// BarWithinPhrase returns the 1-based bar number relative to the start of
// the current phrase.
func (s Snapshot) BarWithinPhrase() int {
	return int(mod64(s.Bar()-1, int64(s.barsPerPhrase))) + 1
}

// Marker renders the snapshot's position as "phrase.bar.beat".
func (s Snapshot) Marker() string {
	return fmt.Sprintf("%d.%d.%d", s.Phrase(), s.BarWithinPhrase(), s.BeatWithinBar())
}

// DistanceFromBeat returns how far, in milliseconds, the snapshot is from
// its closest beat boundary.
func (s Snapshot) DistanceFromBeat() float64 {
	return distanceFromMarker(s.BeatPhase(), s.beatInterval)
}

// DistanceFromBar returns how far, in milliseconds, the snapshot is from
// its closest bar boundary.
func (s Snapshot) DistanceFromBar() float64 {
	return distanceFromMarker(s.BarPhase(), s.barInterval)
}

// DistanceFromPhrase returns how far, in milliseconds, the snapshot is from
// its closest phrase boundary.
func (s Snapshot) DistanceFromPhrase() float64 {
	return distanceFromMarker(s.PhrasePhase(), s.phraseInterval)
}

func distanceFromMarker(phase, interval float64) float64 {
	return math.Min(phase, 1-phase) * interval
}

func mod64(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
