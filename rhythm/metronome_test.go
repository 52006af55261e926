package rhythm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"
)

func TestMetronomeDefaultTempo(t *testing.T) {
	t.Parallel()

	fake := testclock.NewFakeClock(time.Now())
	m := New(fake)

	snap := m.Snapshot()
	assert.InDelta(t, 500.0, snap.BeatInterval(), 0.0001)
	assert.Equal(t, int64(1), snap.Beat())
}

func TestMetronomeSetBPMPreservesBeat(t *testing.T) {
	t.Parallel()

	start := time.Now()
	fake := testclock.NewFakeClock(start)
	m := New(fake)

	fake.SetTime(start.Add(2 * time.Second))
	beatBefore := m.Snapshot().Beat()

	m.SetBPM(128.0)
	assert.InDelta(t, 128.0, m.Tempo(), 0.0001)

	snap := m.Snapshot()
	assert.InDelta(t, 468.75, snap.BeatInterval(), 0.001)
	assert.Equal(t, beatBefore, snap.Beat())
}

func TestMetronomeBeatsAdvance(t *testing.T) {
	t.Parallel()

	start := time.Now()
	fake := testclock.NewFakeClock(start)
	m := New(fake, WithBPM(120))

	assert.Equal(t, int64(1), m.Snapshot().Beat())

	fake.SetTime(start.Add(500 * time.Millisecond))
	assert.Equal(t, int64(2), m.Snapshot().Beat())

	fake.SetTime(start.Add(2 * time.Second))
	snap := m.Snapshot()
	assert.Equal(t, int64(5), snap.Beat())
	assert.True(t, snap.IsDownBeat())
}

func TestMetronomeBarAndPhraseBoundaries(t *testing.T) {
	t.Parallel()

	start := time.Now()
	fake := testclock.NewFakeClock(start)
	m := New(fake, WithBPM(120), WithBeatsPerBar(4), WithBarsPerPhrase(8))

	// One full bar (4 beats @ 500ms) should land back on beat 1 of bar 2.
	fake.SetTime(start.Add(2 * time.Second))
	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Bar())
	assert.Equal(t, 1, snap.BeatWithinBar())
	assert.True(t, snap.IsDownBeat())

	// One full phrase (32 beats) should land on phrase 2.
	fake.SetTime(start.Add(16 * time.Second))
	snap = m.Snapshot()
	assert.Equal(t, int64(2), snap.Phrase())
	assert.True(t, snap.IsPhraseStart())
}

type fixedSync struct {
	bpm float64
	ok  bool
}

func (f fixedSync) Tempo() (float64, bool) { return f.bpm, f.ok }

func TestMetronomeSync(t *testing.T) {
	t.Parallel()

	fake := testclock.NewFakeClock(time.Now())
	m := New(fake)

	m.Sync(fixedSync{bpm: 140, ok: true})
	assert.InDelta(t, 140.0, m.Tempo(), 0.0001)

	m.Sync(fixedSync{ok: false})
	assert.InDelta(t, 140.0, m.Tempo(), 0.0001)

	m.Sync(nil)
	assert.InDelta(t, 140.0, m.Tempo(), 0.0001)
}

func TestMetronomeTapTempo(t *testing.T) {
	t.Parallel()

	start := time.Now()
	fake := testclock.NewFakeClock(start)
	m := New(fake)

	interval := 500 * time.Millisecond // 120bpm
	for i := 0; i < 5; i++ {
		fake.SetTime(start.Add(time.Duration(i) * interval))
		m.TapTempo()
	}

	require.InDelta(t, 120.0, m.Tempo(), 0.5)
}
