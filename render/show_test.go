package render

import (
	"testing"
	"time"

	"github.com/fogleman/ease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"github.com/robmorgan/lumen/color"
	"github.com/robmorgan/lumen/effect"
	"github.com/robmorgan/lumen/fixture"
	"github.com/robmorgan/lumen/render/ext"
	"github.com/robmorgan/lumen/rhythm"
	"github.com/robmorgan/lumen/spatial"
)

func dimmerDef() fixture.FixtureDef {
	return fixture.FixtureDef{
		Name: "dimmer",
		Channels: []fixture.ChannelDef{
			{Kind: fixture.KindDimmer, Offset: 1},
		},
	}
}

func rgbDimmerDef() fixture.FixtureDef {
	return fixture.FixtureDef{
		Name: "rgb-dimmer",
		Channels: []fixture.ChannelDef{
			{Kind: fixture.KindColor, Offset: 1, Hue: color.HueRed},
			{Kind: fixture.KindColor, Offset: 2, Hue: color.HueGreen},
			{Kind: fixture.KindColor, Offset: 3, Hue: color.HueBlue},
			{Kind: fixture.KindDimmer, Offset: 4},
		},
	}
}

func movingHeadDef() fixture.FixtureDef {
	return fixture.FixtureDef{
		Name: "moving-head",
		Heads: []fixture.HeadDef{
			{
				Channels: []fixture.ChannelDef{
					{Kind: fixture.KindPan, Offset: 1},
					{Kind: fixture.KindTilt, Offset: 2},
				},
				Calibration: spatial.Calibration{
					PanCenter: 84, PanHalfCircle: 84,
					TiltCenter: 8, TiltHalfCircle: -214,
				},
			},
		},
	}
}

func newTestShow(t *testing.T, start time.Time) (*Show, *testclock.FakeClock) {
	t.Helper()
	fake := testclock.NewFakeClock(start)
	metronome := rhythm.New(fake)
	show := NewShow(metronome, WithClock(fake))
	return show, fake
}

func dimmerEffect(fixtureID string, percent float64, opts ...effect.Option) *effect.Effect {
	return effect.New(fixtureID+"-dimmer", 0, 0, func(ctx effect.ShowContext, snapshot rhythm.Snapshot) effect.GenResult {
		return effect.GenResult{Assigners: []effect.Assigner{
			{
				Kind:     effect.KindChannel,
				TargetID: effect.ChannelTarget{FixtureID: fixtureID, HeadIndex: 0, Channel: string(fixture.KindDimmer)},
				Produce: func(ctx effect.ShowContext, snapshot rhythm.Snapshot, target effect.TargetID, previous *effect.Assignment) *effect.Assignment {
					return &effect.Assignment{Kind: effect.KindChannel, TargetID: target, Value: percent / 100 * 255}
				},
			},
		}}
	}, opts...)
}

func colorEffect(fixtureID string, hsl color.HSL, opts ...effect.Option) *effect.Effect {
	gen := func(ctx effect.ShowContext, snapshot rhythm.Snapshot) effect.GenResult {
		return effect.GenResult{Assigners: []effect.Assigner{
			{
				Kind:     effect.KindColor,
				TargetID: effect.ColorTarget{FixtureID: fixtureID, HeadIndex: 0},
				Produce: func(ctx effect.ShowContext, snapshot rhythm.Snapshot, target effect.TargetID, previous *effect.Assignment) *effect.Assignment {
					return &effect.Assignment{Kind: effect.KindColor, TargetID: target, Value: hsl}
				},
			},
		}}
	}
	return effect.New(fixtureID+"-color", 0, 0, gen, opts...)
}

func panTiltEffect(fixtureID string, pan, tilt float64) *effect.Effect {
	return effect.New(fixtureID+"-pantilt", 0, 0, func(ctx effect.ShowContext, snapshot rhythm.Snapshot) effect.GenResult {
		return effect.GenResult{Assigners: []effect.Assigner{
			{
				Kind:     effect.KindPanTilt,
				TargetID: effect.PanTiltTarget{FixtureID: fixtureID, HeadIndex: 0},
				Produce: func(ctx effect.ShowContext, snapshot rhythm.Snapshot, target effect.TargetID, previous *effect.Assignment) *effect.Assignment {
					return &effect.Assignment{Kind: effect.KindPanTilt, TargetID: target, Value: effect.PanTilt{PanAngle: pan, TiltAngle: tilt}}
				},
			},
		}}
	})
}

// Scenario 1 (spec §8): single dimmer effect with a 1s fade-in.
func TestScenarioDimmerFadeIn(t *testing.T) {
	t.Parallel()
	start := time.Now()
	show, fake := newTestShow(t, start)

	id, err := show.PatchFixture(1, 10, dimmerDef(), fixture.Placement{})
	require.NoError(t, err)

	e := dimmerEffect(id, 100, effect.WithFadeIn(time.Second, ease.Linear))
	show.AddEffect(0, "e1", e)

	show.RenderFrame() // t=0, drains AddEffect, starts fade-in
	fake.SetTime(start.Add(500 * time.Millisecond))
	show.RenderFrame()
	buf := show.Universe(1)
	assert.InDelta(t, 128, int(buf[9]), 1)

	fake.SetTime(start.Add(1000 * time.Millisecond))
	show.RenderFrame()
	buf = show.Universe(1)
	assert.Equal(t, byte(255), buf[9])
}

// Scenario 2 (spec §8): higher-priority effect wins a non-blending target.
func TestScenarioPriorityOverride(t *testing.T) {
	t.Parallel()
	show, _ := newTestShow(t, time.Now())

	id, err := show.PatchFixture(1, 1, rgbDimmerDef(), fixture.Placement{})
	require.NoError(t, err)

	red := colorEffect(id, color.New(color.HueRed, 100, 50))
	blue := colorEffect(id, color.New(240, 100, 50))
	show.AddEffect(10, "red", red)
	show.AddEffect(20, "blue", blue)

	show.RenderFrame()
	show.RenderFrame()

	buf := show.Universe(1)
	assert.Equal(t, byte(0), buf[0])
	assert.Equal(t, byte(0), buf[1])
	assert.Equal(t, byte(255), buf[2])
}

// Scenario 3 (spec §8): color and dimmer compose onto distinct channels.
func TestScenarioColorDimmerComposition(t *testing.T) {
	t.Parallel()
	show, _ := newTestShow(t, time.Now())

	id, err := show.PatchFixture(1, 1, rgbDimmerDef(), fixture.Placement{})
	require.NoError(t, err)

	green := colorEffect(id, color.New(color.HueGreen, 100, 50))
	show.AddEffect(0, "green", green)
	show.AddEffect(0, "dimmer", dimmerEffect(id, 50))

	show.RenderFrame()
	show.RenderFrame()

	buf := show.Universe(1)
	assert.Equal(t, []byte{0, 128, 0, 128}, buf[0:4])
}

// Scenario 4 (spec §8): pan-tilt calibration maps (0,0) onto the calibrated
// center bytes.
func TestScenarioPanTiltCalibration(t *testing.T) {
	t.Parallel()
	show, _ := newTestShow(t, time.Now())

	id, err := show.PatchFixture(1, 1, movingHeadDef(), fixture.Placement{})
	require.NoError(t, err)

	show.AddEffect(0, "pantilt", panTiltEffect(id, 0, 0))

	show.RenderFrame()
	show.RenderFrame()

	buf := show.Universe(1)
	assert.Equal(t, byte(84), buf[0])
	assert.Equal(t, byte(8), buf[1])
}

// Scenario 5 (spec §8): color-wheel selection, including the ascending-hue
// tie-break.
func TestScenarioColorWheelSelection(t *testing.T) {
	t.Parallel()

	def := fixture.FixtureDef{
		Name: "wheel",
		Channels: []fixture.ChannelDef{
			{Kind: fixture.KindFunction, Offset: 1, Functions: []fixture.FunctionRange{
				{Tag: "hue0", Low: 0, High: 9, IsWheel: true, WheelHue: 0},
				{Tag: "hue60", Low: 10, High: 19, IsWheel: true, WheelHue: 60},
				{Tag: "hue120", Low: 20, High: 29, IsWheel: true, WheelHue: 120},
				{Tag: "hue240", Low: 30, High: 39, IsWheel: true, WheelHue: 240},
			}},
		},
	}

	for _, tc := range []struct {
		name string
		hue  float64
		want byte
	}{
		{"hue55", 55, 14},
		{"hue30-tie", 30, 14},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			show, _ := newTestShow(t, time.Now())
			id, err := show.PatchFixture(1, 1, def, fixture.Placement{})
			require.NoError(t, err)

			e := colorEffect(id, color.New(tc.hue, 80, 50))
			show.AddEffect(0, "wheel-effect", e)

			show.RenderFrame()
			show.RenderFrame()

			buf := show.Universe(1)
			assert.Equal(t, tc.want, buf[0])
		})
	}
}

// Invariant 6: channel inversion is an involution.
func TestChannelInversionInvolution(t *testing.T) {
	t.Parallel()
	def := fixture.FixtureDef{
		Name: "invert",
		Channels: []fixture.ChannelDef{
			{Kind: fixture.KindDimmer, Offset: 1},
			{Kind: fixture.KindDimmer, Offset: 2, Inverted: true},
		},
	}
	show, _ := newTestShow(t, time.Now())
	id, err := show.PatchFixture(1, 1, def, fixture.Placement{})
	require.NoError(t, err)

	f, err := show.GetFixture(id)
	require.NoError(t, err)
	show.writeChannel(f.Channels[0], 200)
	show.writeChannel(f.Channels[1], 255-200)

	buf := show.Universe(1)
	assert.Equal(t, buf[0], buf[1])
}

// Invariant 7: fine-channel round trip recovers the value to within 1/256.
func TestFineChannelRoundTrip(t *testing.T) {
	t.Parallel()
	def := fixture.FixtureDef{
		Name: "fine",
		Channels: []fixture.ChannelDef{
			{Kind: fixture.KindFocus, Offset: 1, FineOffset: 2},
		},
	}
	show, _ := newTestShow(t, time.Now())
	id, err := show.PatchFixture(1, 1, def, fixture.Placement{})
	require.NoError(t, err)
	f, err := show.GetFixture(id)
	require.NoError(t, err)

	for _, v := range []float64{0, 1.5, 100.25, 200.999, 255.99} {
		show.writeChannel(f.Channels[0], v)
		got := show.ReadChannelValue(f.Channels[0])
		assert.InDelta(t, v, got, 1.0/256)
	}
}

// Invariant 9: an overrun frame still produces a well-formed buffer and the
// following frame still runs.
func TestOverrunSafety(t *testing.T) {
	t.Parallel()
	show, fake := newTestShow(t, time.Now())
	id, err := show.PatchFixture(1, 10, dimmerDef(), fixture.Placement{})
	require.NoError(t, err)
	show.AddEffect(0, "e1", dimmerEffect(id, 100))
	// An artificially slow effect: advancing the fake clock inside Generate
	// makes every frame's measured duration exceed the refresh interval.
	show.AddEffect(0, "slow", effect.New("slow", 0, 0, func(effect.ShowContext, rhythm.Snapshot) effect.GenResult {
		fake.Step(time.Second) // well past the refresh interval
		return effect.GenResult{}
	}))

	show.RenderFrame()
	show.RenderFrame()

	buf := show.Universe(1)
	assert.Equal(t, byte(255), buf[9])
	m := show.MetricsSnapshot()
	assert.Equal(t, uint64(2), m.FramesSent)
	assert.Equal(t, uint64(2), m.RecentOverruns)
}

// Invariant 1: frame determinism for a fixed effect set and snapshot.
func TestFrameDeterminism(t *testing.T) {
	t.Parallel()
	build := func() [512]byte {
		show, fake := newTestShow(t, time.Now())
		id, err := show.PatchFixture(1, 10, dimmerDef(), fixture.Placement{})
		require.NoError(t, err)
		show.AddEffect(0, "e1", dimmerEffect(id, 42))
		show.RenderFrame()
		fake.Step(10 * time.Millisecond)
		show.RenderFrame()
		return show.Universe(1)
	}
	assert.Equal(t, build(), build())
}

// Scenario 6 (spec §8): a higher-priority effect that is fading out still
// overrides a lower-priority contender outright on the same target — the
// fold is priority override, not a cross-effect blend, so the fade-out
// darkens red's own hue rather than crossfading into blue. Blue only
// becomes visible once red has fully ended and is removed.
func TestScenarioFadeOutOverridesLowerPriorityUntilEnded(t *testing.T) {
	t.Parallel()
	start := time.Now()
	show, fake := newTestShow(t, start)

	id, err := show.PatchFixture(1, 1, rgbDimmerDef(), fixture.Placement{})
	require.NoError(t, err)

	red := colorEffect(id, color.New(color.HueRed, 100, 50), effect.WithFadeOut(time.Second, ease.Linear))
	blue := colorEffect(id, color.New(color.HueBlue, 100, 50))
	show.AddEffect(10, "red", red)
	show.AddEffect(0, "blue", blue)
	show.RenderFrame() // t=0: both running, red (higher priority) wins outright

	f, err := show.GetFixture(id)
	require.NoError(t, err)
	assert.Greater(t, show.ReadChannelValue(f.Channels[0]), show.ReadChannelValue(f.Channels[2]))

	show.EndEffect("red")
	fake.SetTime(start.Add(500 * time.Millisecond))
	show.RenderFrame() // t=500ms: End just requested, fade-out fraction is still 0

	fake.SetTime(start.Add(1000 * time.Millisecond))
	show.RenderFrame() // t=1000ms: 500ms into the 1s fade-out, red half-darkened

	rAtHalfFade := show.ReadChannelValue(f.Channels[0])
	assert.Equal(t, 0.0, show.ReadChannelValue(f.Channels[2])) // blue still fully hidden
	assert.Greater(t, rAtHalfFade, 0.0)
	assert.Less(t, rAtHalfFade, 255.0) // red itself has darkened partway, not blended with blue

	fake.SetTime(start.Add(1500 * time.Millisecond))
	show.RenderFrame() // t=1500ms: the 1s fade-out window has fully elapsed; red folds to
	// its darkened endpoint one last time, then ends and is removed

	assert.Equal(t, 0.0, show.ReadChannelValue(f.Channels[0]))
	assert.Equal(t, 0.0, show.ReadChannelValue(f.Channels[2])) // red still present this frame, fully darkened

	show.RenderFrame() // one more frame: red is now removed, blue takes over
	assert.Equal(t, 0.0, show.ReadChannelValue(f.Channels[0]))
	assert.Greater(t, show.ReadChannelValue(f.Channels[2]), 0.0)
}

// Invariant 2: priority monotonicity — raising an effect's priority
// strictly increases its odds of winning a contended target, and never
// decreases the winner's value below what a lower priority would produce.
func TestInvariantPriorityMonotonicity(t *testing.T) {
	t.Parallel()
	show, _ := newTestShow(t, time.Now())

	id, err := show.PatchFixture(1, 1, rgbDimmerDef(), fixture.Placement{})
	require.NoError(t, err)

	low := colorEffect(id, color.New(color.HueRed, 100, 50))
	high := colorEffect(id, color.New(color.HueBlue, 100, 50))
	show.AddEffect(5, "low", low)
	show.AddEffect(5, "high", high)
	show.RenderFrame()
	show.RenderFrame()
	tiedWinner := show.Universe(1)[2] // blue channel, since high submitted later at equal priority

	show2, _ := newTestShow(t, time.Now())
	id2, err := show2.PatchFixture(1, 1, rgbDimmerDef(), fixture.Placement{})
	require.NoError(t, err)
	low2 := colorEffect(id2, color.New(color.HueRed, 100, 50))
	high2 := colorEffect(id2, color.New(color.HueBlue, 100, 50))
	show2.AddEffect(20, "low", low2)
	show2.AddEffect(5, "high", high2)
	show2.RenderFrame()
	show2.RenderFrame()
	reorderedWinner := show2.Universe(1)[0] // red channel, since low2 now has the higher priority

	assert.Equal(t, byte(255), tiedWinner)
	assert.Equal(t, byte(255), reorderedWinner)
}

// Invariant 3: within equal priority, submission order decides the
// winner on a contended target.
func TestInvariantOrderPreservationWithinSamePriority(t *testing.T) {
	t.Parallel()

	runOrder := func(first, second string) byte {
		show, _ := newTestShow(t, time.Now())
		id, err := show.PatchFixture(1, 1, rgbDimmerDef(), fixture.Placement{})
		require.NoError(t, err)

		red := colorEffect(id, color.New(color.HueRed, 100, 50))
		blue := colorEffect(id, color.New(color.HueBlue, 100, 50))
		effects := map[string]*effect.Effect{"red": red, "blue": blue}
		show.AddEffect(0, first, effects[first])
		show.AddEffect(0, second, effects[second])
		show.RenderFrame()
		show.RenderFrame()
		return show.Universe(1)[2] // blue channel value
	}

	redThenBlue := runOrder("red", "blue")
	blueThenRed := runOrder("blue", "red")

	assert.Equal(t, byte(255), redThenBlue) // blue submitted last, wins
	assert.Equal(t, byte(0), blueThenRed)   // red submitted last, wins
}

// Invariant 5: an assigner that returns a mismatched kind/target is
// contained to its own effect; the target keeps whatever the
// well-behaved contributions resolved to, and the universe buffer is not
// corrupted.
func TestInvariantMismatchedAssignmentIsContained(t *testing.T) {
	t.Parallel()
	show, _ := newTestShow(t, time.Now())

	id, err := show.PatchFixture(1, 1, rgbDimmerDef(), fixture.Placement{})
	require.NoError(t, err)

	good := colorEffect(id, color.New(color.HueGreen, 100, 50))
	show.AddEffect(0, "good", good)

	misbehaving := effect.New("bad", 10, 0, func(ctx effect.ShowContext, snapshot rhythm.Snapshot) effect.GenResult {
		return effect.GenResult{Assigners: []effect.Assigner{
			{
				Kind:     effect.KindColor,
				TargetID: effect.ColorTarget{FixtureID: id, HeadIndex: 0},
				Produce: func(ctx effect.ShowContext, snapshot rhythm.Snapshot, target effect.TargetID, previous *effect.Assignment) *effect.Assignment {
					// Declares KindColor above but returns KindChannel: a
					// programmer error the fold must fail fast on.
					return &effect.Assignment{Kind: effect.KindChannel, TargetID: effect.ChannelTarget{FixtureID: id, Channel: "dimmer"}, Value: 99.0}
				},
			},
		}}
	})
	show.AddEffect(10, "bad", misbehaving)

	show.RenderFrame()
	require.NotPanics(t, func() { show.RenderFrame() })

	buf := show.Universe(1)
	assert.Equal(t, []byte{0, 255, 0}, buf[0:3])
	assert.Equal(t, effect.StateEnded, misbehaving.State())
}

// Invariant 8: ending an already-ended effect is a no-op.
func TestIdempotentEffectEnd(t *testing.T) {
	t.Parallel()
	show, _ := newTestShow(t, time.Now())
	id, err := show.PatchFixture(1, 10, dimmerDef(), fixture.Placement{})
	require.NoError(t, err)
	show.AddEffect(0, "e1", dimmerEffect(id, 100))

	show.RenderFrame()
	show.EndEffect("e1")
	show.RenderFrame()
	show.EndEffect("e1") // already ended: must not resurrect it
	show.RenderFrame()

	buf := show.Universe(1)
	assert.Equal(t, byte(0), buf[9])
}

// A generator that reports GenResult.Done must have its effect faded out
// and removed by the scheduler on its own, without any EndEffect call.
func TestSelfCompletingEffectIsRemovedByScheduler(t *testing.T) {
	t.Parallel()
	start := time.Now()
	show, fake := newTestShow(t, start)

	id, err := show.PatchFixture(1, 10, dimmerDef(), fixture.Placement{})
	require.NoError(t, err)

	oneShot := effect.New(id+"-flash", 0, 0, func(ctx effect.ShowContext, snapshot rhythm.Snapshot) effect.GenResult {
		return effect.GenResult{
			Done: true,
			Assigners: []effect.Assigner{
				{
					Kind:     effect.KindChannel,
					TargetID: effect.ChannelTarget{FixtureID: id, HeadIndex: 0, Channel: string(fixture.KindDimmer)},
					Produce: func(ctx effect.ShowContext, snapshot rhythm.Snapshot, target effect.TargetID, previous *effect.Assignment) *effect.Assignment {
						return &effect.Assignment{Kind: effect.KindChannel, TargetID: target, Value: 255.0}
					},
				},
			},
		}
	}, effect.WithFadeOut(time.Second, ease.Linear))
	show.AddEffect(0, "flash", oneShot)

	show.RenderFrame() // t=0: Generate runs once, self-reports Done, enters StateEnding
	assert.Equal(t, effect.StateEnding, oneShot.State())
	assert.Equal(t, byte(255), show.Universe(1)[9])

	fake.SetTime(start.Add(1500 * time.Millisecond))
	show.RenderFrame() // fade-out window elapsed: folds to the darkened endpoint, then ends
	show.RenderFrame() // removed from activeEffects by now

	assert.Equal(t, effect.StateEnded, oneShot.State())
	assert.Equal(t, byte(0), show.Universe(1)[9])
}

// An effect that assigns to the metric extension's KindMetric every frame
// must have its values surface on Show.MetricsSnapshot().Values, not merely
// computed and discarded.
func TestMetricExtensionValuesSurfaceOnShow(t *testing.T) {
	t.Parallel()
	start := time.Now()
	show, _ := newTestShow(t, start)

	fpsEffect := effect.New("fps-reporter", 0, 0, func(ctx effect.ShowContext, snapshot rhythm.Snapshot) effect.GenResult {
		return effect.GenResult{Assigners: []effect.Assigner{
			{
				Kind:     ext.KindMetric,
				TargetID: ext.MetricTarget{Name: "fps"},
				Produce: func(ctx effect.ShowContext, snapshot rhythm.Snapshot, target effect.TargetID, previous *effect.Assignment) *effect.Assignment {
					return &effect.Assignment{Kind: ext.KindMetric, TargetID: target, Value: 42.0}
				},
			},
		}}
	})
	show.AddEffect(0, "fps", fpsEffect)

	show.RenderFrame()

	m := show.MetricsSnapshot()
	require.NotNil(t, m.Values)
	assert.Equal(t, 42.0, m.Values["fps"])
}

// A KindVariable assignment from an effect must reach Show.GetVariable once
// the frame's extension buffers are sent, exercising the variable extension
// end to end through a real Show rather than in isolation.
func TestVariableExtensionAssignmentSurfacesOnShow(t *testing.T) {
	t.Parallel()
	start := time.Now()
	show, _ := newTestShow(t, start)

	cueEffect := effect.New("cue-writer", 0, 0, func(ctx effect.ShowContext, snapshot rhythm.Snapshot) effect.GenResult {
		return effect.GenResult{Assigners: []effect.Assigner{
			{
				Kind:     ext.KindVariable,
				TargetID: ext.VariableTarget{Name: "cue"},
				Produce: func(ctx effect.ShowContext, snapshot rhythm.Snapshot, target effect.TargetID, previous *effect.Assignment) *effect.Assignment {
					return &effect.Assignment{Kind: ext.KindVariable, TargetID: target, Value: "blackout"}
				},
			},
		}}
	})
	show.AddEffect(0, "cue", cueEffect)

	show.RenderFrame()

	v, ok := show.GetVariable("cue")
	require.True(t, ok)
	assert.Equal(t, "blackout", v)
}
