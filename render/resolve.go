package render

import (
	"fmt"
	"math"

	"github.com/robmorgan/lumen/color"
	"github.com/robmorgan/lumen/effect"
	"github.com/robmorgan/lumen/fixture"
	"github.com/robmorgan/lumen/spatial"
)

// resolveAssignment is the §4.9 dispatch: it translates one final, typed
// Assignment into DMX bytes (or hands it to an extension's own resolver).
// Dynamic parameters are not evaluated here: producers evaluate them when
// they run during the fold, so the Assignment already carries a concrete
// value by the time it reaches here, and fades blend those concrete
// values.
func (s *Show) resolveAssignment(a *effect.Assignment) error {
	switch a.Kind {
	case effect.KindChannel:
		return s.resolveChannel(a)
	case effect.KindFunction:
		return s.resolveFunction(a)
	case effect.KindColor:
		return s.resolveColor(a)
	case effect.KindPanTilt:
		return s.resolvePanTilt(a)
	case effect.KindDirection:
		return s.resolveDirection(a)
	case effect.KindAim:
		return s.resolveAim(a)
	default:
		return s.extensions.Resolve(a)
	}
}

// headFor resolves a (fixtureID, headIndex) pair to its patched head and
// owning fixture. Guarded by fixturesMu since PatchFixture can run
// concurrently with the render loop.
func (s *Show) headFor(fixtureID string, headIndex int) (*fixture.Fixture, *fixture.Head, bool) {
	s.fixturesMu.Lock()
	defer s.fixturesMu.Unlock()
	f, ok := s.fixtures[fixtureID]
	if !ok {
		return nil, nil, false
	}
	h := f.Head(headIndex)
	if h == nil {
		return nil, nil, false
	}
	return f, h, true
}

// channelsFor returns every channel reachable from a (fixtureID, headIndex)
// target: the head's own channels, plus — for head 0 only — the fixture's
// top-level channels. A fixture with no declared heads patches as a single
// implicit head 0 with no channels of its own (see fixture.Patch), so its
// real channels live on the fixture; a multi-head fixture may still carry
// fixture-level channels (e.g. a shared master dimmer) alongside its
// heads', so both are visible at head 0 without shadowing either.
func channelsFor(f *fixture.Fixture, h *fixture.Head, headIndex int) []*fixture.Channel {
	chans := append([]*fixture.Channel(nil), h.Channels...)
	if headIndex == 0 {
		chans = append(chans, f.Channels...)
	}
	return chans
}

func findChannelOfKind(chans []*fixture.Channel, kind fixture.Kind) (*fixture.Channel, bool) {
	for _, c := range chans {
		if c.Kind == kind {
			return c, true
		}
	}
	return nil, false
}

// writeChannel converts a channel-kind value in [0,256) into coarse (and,
// for 16-bit channels, fine) DMX bytes in the channel's own universe,
// applying inversion and clamping per spec §4.9. Out-of-range input is
// clamped and counted (spec §7).
func (s *Show) writeChannel(ch *fixture.Channel, value float64) {
	clamped := value
	if clamped < 0 || clamped >= 256 {
		s.noteClamp()
		clamped = clampChannelValue(clamped)
	}

	var coarse, fine byte
	if ch.HasFine() {
		intPart := math.Floor(clamped)
		frac := clamped - intPart
		coarse = byte(clampChannelValue(intPart))
		fine = byte(clampChannelValue(frac * 256))
	} else {
		coarse = byte(clampChannelValue(math.Round(clamped)))
	}

	if ch.Inverted {
		coarse = 255 - coarse
		if ch.HasFine() {
			fine = 255 - fine
		}
	}

	u := s.universe(ch.Universe)
	u.Set(ch.Address, coarse)
	if ch.HasFine() {
		u.Set(ch.FineAddress, fine)
	}
}

// ReadChannelValue is the inverse of writeChannel: it recombines a
// channel's coarse (and fine) bytes back into a [0,256) value, undoing
// inversion, for tests and console/visualizer read-back (spec §8 property
// 7, fine-channel round-trip).
func (s *Show) ReadChannelValue(ch *fixture.Channel) float64 {
	u := s.universe(ch.Universe)
	coarse := u.Get(ch.Address)
	var fine byte
	if ch.HasFine() {
		fine = u.Get(ch.FineAddress)
	}
	if ch.Inverted {
		coarse = 255 - coarse
		if ch.HasFine() {
			fine = 255 - fine
		}
	}
	if !ch.HasFine() {
		return float64(coarse)
	}
	return float64(coarse) + float64(fine)/256
}

func clampChannelValue(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func (s *Show) noteClamp() {
	s.metricsMu.Lock()
	s.clampedChannels++
	s.metricsMu.Unlock()
}

// ClampedChannelCount reports how many channel writes this show has had to
// clamp into DMX range, per spec §7's "increments a counter".
func (s *Show) ClampedChannelCount() uint64 {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	return s.clampedChannels
}

func (s *Show) resolveChannel(a *effect.Assignment) error {
	target, ok := a.TargetID.(effect.ChannelTarget)
	if !ok {
		return fmt.Errorf("render: channel assignment has non-channel target %T", a.TargetID)
	}
	f, h, ok := s.headFor(target.FixtureID, target.HeadIndex)
	if !ok {
		return fmt.Errorf("render: no head %s/%d for channel assignment", target.FixtureID, target.HeadIndex)
	}
	ch, ok := findChannelOfKind(channelsFor(f, h, target.HeadIndex), fixture.Kind(target.Channel))
	if !ok {
		return fmt.Errorf("render: %s/%d has no %q channel", target.FixtureID, target.HeadIndex, target.Channel)
	}
	value, _ := a.Value.(float64)
	s.writeChannel(ch, value)
	return nil
}

func (s *Show) resolveFunction(a *effect.Assignment) error {
	target, ok := a.TargetID.(effect.FunctionTarget)
	if !ok {
		return fmt.Errorf("render: function assignment has non-function target %T", a.TargetID)
	}
	f, h, ok := s.headFor(target.FixtureID, target.HeadIndex)
	if !ok {
		return fmt.Errorf("render: no head %s/%d for function assignment", target.FixtureID, target.HeadIndex)
	}
	fv, _ := a.Value.(effect.FunctionValue)

	for _, c := range channelsFor(f, h, target.HeadIndex) {
		if c.Kind != fixture.KindFunction {
			continue
		}
		for _, r := range c.Functions {
			if r.Tag != fv.Tag {
				continue
			}
			s.writeChannel(c, float64(r.Scale(fv.Percent)))
			return nil
		}
	}
	return fmt.Errorf("render: %s/%d has no function range tagged %q", target.FixtureID, target.HeadIndex, fv.Tag)
}

func (s *Show) resolveColor(a *effect.Assignment) error {
	target, ok := a.TargetID.(effect.ColorTarget)
	if !ok {
		return fmt.Errorf("render: color assignment has non-color target %T", a.TargetID)
	}
	f, h, ok := s.headFor(target.FixtureID, target.HeadIndex)
	if !ok {
		return fmt.Errorf("render: no head %s/%d for color assignment", target.FixtureID, target.HeadIndex)
	}
	hsl, _ := a.Value.(color.HSL)

	chans := channelsFor(f, h, target.HeadIndex)
	var colorChans []*fixture.Channel
	var wheelChan *fixture.Channel
	var wheelEntries []color.WheelEntry
	for _, c := range chans {
		switch c.Kind {
		case fixture.KindColor:
			colorChans = append(colorChans, c)
		case fixture.KindFunction:
			for _, r := range c.Functions {
				if r.IsWheel {
					wheelChan = c
					wheelEntries = append(wheelEntries, color.WheelEntry{Hue: r.WheelHue, Tag: r.Tag, Low: r.Low, High: r.High})
				}
			}
		}
	}

	// §4.9: prefer direct mixing across mixable color channels; fall back
	// to wheel selection only when no mixable channel exists.
	if len(colorChans) > 0 {
		for _, c := range colorChans {
			s.writeChannel(c, hsl.Primary(c.Hue)*255)
		}
		return nil
	}

	if wheelChan != nil {
		if entry, found := color.SelectWheelEntry(wheelEntries, hsl, s.config.ColorWheelHueTolerance, s.config.ColorWheelMinSaturation); found {
			s.writeChannel(wheelChan, float64(entry.Midpoint()))
		}
	}
	return nil
}

func (s *Show) resolvePanTilt(a *effect.Assignment) error {
	target, ok := a.TargetID.(effect.PanTiltTarget)
	if !ok {
		return fmt.Errorf("render: pan-tilt assignment has non-pan-tilt target %T", a.TargetID)
	}
	f, h, ok := s.headFor(target.FixtureID, target.HeadIndex)
	if !ok {
		return fmt.Errorf("render: no head %s/%d for pan-tilt assignment", target.FixtureID, target.HeadIndex)
	}
	pt, _ := a.Value.(effect.PanTilt)
	return s.writePanTilt(f, h, target.HeadIndex, pt.PanAngle, pt.TiltAngle)
}

func (s *Show) resolveDirection(a *effect.Assignment) error {
	target, ok := a.TargetID.(effect.DirectionTarget)
	if !ok {
		return fmt.Errorf("render: direction assignment has non-direction target %T", a.TargetID)
	}
	f, h, ok := s.headFor(target.FixtureID, target.HeadIndex)
	if !ok {
		return fmt.Errorf("render: no head %s/%d for direction assignment", target.FixtureID, target.HeadIndex)
	}
	dir, _ := a.Value.(spatial.Vec3)
	pan, tilt := spatial.DirectionToPanTilt(dir, h.Rotation)
	return s.writePanTilt(f, h, target.HeadIndex, pan, tilt)
}

func (s *Show) resolveAim(a *effect.Assignment) error {
	target, ok := a.TargetID.(effect.AimTarget)
	if !ok {
		return fmt.Errorf("render: aim assignment has non-aim target %T", a.TargetID)
	}
	f, h, ok := s.headFor(target.FixtureID, target.HeadIndex)
	if !ok {
		return fmt.Errorf("render: no head %s/%d for aim assignment", target.FixtureID, target.HeadIndex)
	}
	point, _ := a.Value.(spatial.Vec3)
	dir := point.Sub(h.Position).Normalize()
	pan, tilt := spatial.DirectionToPanTilt(dir, h.Rotation)
	return s.writePanTilt(f, h, target.HeadIndex, pan, tilt)
}

// writePanTilt is the common tail of pan-tilt/direction/aim resolution:
// derive DMX pan/tilt bytes from the head's calibration, clamp to physical
// range (the calibration math itself already clamps, spec §4.2), and write
// them as channel-kind writes.
func (s *Show) writePanTilt(f *fixture.Fixture, h *fixture.Head, headIndex int, panAngle, tiltAngle float64) error {
	if !h.HasMovement() {
		return fmt.Errorf("render: head %d of %s has no pan/tilt calibration", headIndex, f.ID)
	}
	panByte, tiltByte := spatial.PanTiltToDMX(panAngle, tiltAngle, h.Calibration)

	chans := channelsFor(f, h, headIndex)
	if panCh, ok := findChannelOfKind(chans, fixture.KindPan); ok {
		s.writeChannel(panCh, panByte)
	}
	if tiltCh, ok := findChannelOfKind(chans, fixture.KindTilt); ok {
		s.writeChannel(tiltCh, tiltByte)
	}
	return nil
}
