package render

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/robmorgan/lumen/effect"
	"github.com/robmorgan/lumen/fixture"
	"github.com/robmorgan/lumen/internal/showlog"
	"github.com/robmorgan/lumen/render/fade"
	"github.com/robmorgan/lumen/rhythm"
)

var log = showlog.Named("render")

// Start begins the renderer's scheduling loop on its own goroutine (spec
// §4.10, §5 "runs on a single dedicated thread"). Calling Start on an
// already-running Show is a no-op.
func (s *Show) Start() {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return
	}
	s.stopCh = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.loop()
}

// Stop sets a flag and joins the scheduler; any in-flight frame completes
// first (spec §5).
func (s *Show) Stop() {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return
	}
	close(s.stopCh)
	<-s.stopped
}

// Errors returns the channel transport failures are reported on (spec §7
// "reported to the hosting application via an error channel").
func (s *Show) Errors() <-chan error { return s.errCh }

func (s *Show) loop() {
	defer close(s.stopped)
	ticker := s.clock.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C():
			s.RenderFrame()
		}
	}
}

// contribution pairs one assigner with the lifecycle state of the effect
// that submitted it, for the per-target fold in step 4.
type contribution struct {
	assigner    effect.Assigner
	owner       *effect.Effect
	entryID     string
	fadeInFrac  float64
	fadingIn    bool
	fadeOutFrac float64
	fadingOut   bool
}

// RenderFrame executes exactly one pass of the eight-step frame pipeline
// (spec §4.10). It is exported so a host can drive frames explicitly (e.g.
// against a fake clock in tests) instead of only through the scheduler
// loop started by Start.
func (s *Show) RenderFrame() {
	start := s.clock.Now()

	// Step 1: drain the command queue, then capture the shared snapshot
	// every effect in this frame will see.
	s.drainCommands()
	snapshot := s.metronome.Snapshot()

	// Step 2: clear universe buffers and run extension empty-buffer hooks.
	s.universesMu.Lock()
	for _, u := range s.universes {
		u.Clear()
	}
	s.universesMu.Unlock()
	s.extensions.EmptyBuffers()

	// Step 3: walk active effects in priority/sequence order, generating
	// this frame's assigners and grouping them by (kind, target).
	s.effectsMu.Lock()
	entries := append([]*effectEntry(nil), s.activeEffects...)
	s.effectsMu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].effect, entries[j].effect
		if a.Priority() != b.Priority() {
			return a.Priority() < b.Priority()
		}
		return a.Sequence() < b.Sequence()
	})

	groups := make(map[effect.Kind]map[effect.TargetID][]contribution)
	removed := make(map[string]bool)

	for _, entry := range entries {
		e := entry.effect
		if e.State() == effect.StateEnded {
			removed[entry.id] = true
			continue
		}

		// Captured before Generate, since Generate itself may flip a
		// completed fade-out from Ending to Ended. fadingOut is driven off
		// the pre-Generate state directly rather than FadeOutFraction's own
		// "active" flag: that flag reads false both when there is no
		// fade-out in progress and when one has just completed (fraction
		// == 1), and on the terminal frame the fold still needs to apply
		// the fade at t=1 (the null endpoint), not skip it and fall back to
		// the unfaded value (spec §8 invariant 4, fade boundary).
		fadeOutFrac, _ := e.FadeOutFraction(snapshot)
		fadingOut := e.State() == effect.StateEnding

		assigners := s.generateIsolated(e, entry.id, snapshot, removed)
		if removed[entry.id] {
			continue
		}

		fadeInFrac, fadingIn := e.FadeInFraction(snapshot)
		for _, asg := range assigners {
			byTarget := groups[asg.Kind]
			if byTarget == nil {
				byTarget = make(map[effect.TargetID][]contribution)
				groups[asg.Kind] = byTarget
			}
			byTarget[asg.TargetID] = append(byTarget[asg.TargetID], contribution{
				assigner: asg, owner: e, entryID: entry.id,
				fadeInFrac: fadeInFrac, fadingIn: fadingIn,
				fadeOutFrac: fadeOutFrac, fadingOut: fadingOut,
			})
		}
	}

	// Steps 4-5: for each kind in the fixed resolution order, fold each
	// target's contributions into one Assignment and resolve it.
	for _, kind := range s.ResolutionOrder() {
		byTarget := groups[kind]
		for targetID, contribs := range byTarget {
			final := s.foldTarget(kind, targetID, snapshot, contribs, removed)
			if final == nil {
				continue
			}
			if err := s.resolveAssignment(final); err != nil {
				log.WithError(err).WithField("kind", kind).Warn("resolve failed")
			}
		}
	}

	// Step 6: flush extension buffers, then hand universe buffers to the
	// transport.
	s.extensions.SendBuffers()
	s.sendToTransport()

	// Step 7: record timing metrics.
	duration := s.clock.Now().Sub(start)
	overran := duration > s.config.RefreshInterval
	if overran {
		log.WithFields(logrus.Fields{"duration": duration, "refresh_interval": s.config.RefreshInterval}).Warn("frame overrun")
	}
	s.recordFrame(duration, overran)

	// Step 8: remove ended effects.
	if len(removed) > 0 {
		s.effectsMu.Lock()
		kept := entries[:0]
		for _, entry := range entries {
			if !removed[entry.id] {
				kept = append(kept, entry)
			}
		}
		s.activeEffects = append([]*effectEntry(nil), kept...)
		s.effectsMu.Unlock()
	}
}

// generateIsolated calls an effect's Generate, recovering from and
// isolating any panic (spec §7 "effect generator exception"): the
// offending effect is killed and marked for removal, and the frame
// proceeds without it.
func (s *Show) generateIsolated(e *effect.Effect, entryID string, snapshot rhythm.Snapshot, removed map[string]bool) (assigners []effect.Assigner) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"effect_id": e.ID(), "effect_name": e.Name(), "panic": r}).
				Error("effect generator panicked; ending effect")
			e.Kill()
			removed[entryID] = true
			assigners = nil
		}
	}()
	return e.Generate(s, snapshot)
}

// produceIsolated calls one assigner's producer closure, recovering from a
// panic the same way generateIsolated does.
func (s *Show) produceIsolated(c contribution, snapshot rhythm.Snapshot, targetID effect.TargetID, prev *effect.Assignment, removed map[string]bool) (out *effect.Assignment) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{"effect_id": c.owner.ID(), "panic": r}).
				Error("assigner producer panicked; ending effect")
			c.owner.Kill()
			removed[c.entryID] = true
			out = nil
		}
	}()
	return c.assigner.Produce(s, snapshot, targetID, prev)
}

// foldTarget implements §4.10 step 4 for one (kind, target): starting from
// "no assignment", fold each contributing assigner in submission order
// (already priority/sequence-sorted by the caller), applying the owning
// effect's fade-in/fade-out envelope around each step.
func (s *Show) foldTarget(kind effect.Kind, targetID effect.TargetID, snapshot rhythm.Snapshot, contribs []contribution, removed map[string]bool) *effect.Assignment {
	var prev *effect.Assignment
	for _, c := range contribs {
		if removed[c.entryID] {
			continue
		}
		next := s.produceIsolated(c, snapshot, targetID, prev, removed)
		if next != nil && (next.Kind != kind || next.TargetID != targetID) {
			// spec §4.7/§7: an assigner returning a mismatched kind/target
			// is a programmer error. Fail fast by isolating the offending
			// effect rather than folding a nonsensical value.
			log.WithFields(logrus.Fields{"effect_id": c.owner.ID(), "kind": kind}).
				Error("assigner produced mismatched kind/target; ending effect")
			c.owner.Kill()
			removed[c.entryID] = true
			continue
		}
		if c.fadingIn {
			next = s.fadeAssignment(kind, nil, next, c.fadeInFrac, targetID, c, removed)
		} else if c.fadingOut {
			next = s.fadeAssignment(kind, next, nil, c.fadeOutFrac, targetID, c, removed)
		}
		prev = next
	}
	return prev
}

func (s *Show) fadeAssignment(kind effect.Kind, from, to *effect.Assignment, t float64, targetID effect.TargetID, c contribution, removed map[string]bool) *effect.Assignment {
	if !isBuiltinKind(kind) {
		res, err := s.extensions.Fade(kind, from, to, t)
		if err != nil {
			log.WithError(err).WithField("effect_id", c.owner.ID()).Error("extension fade failed; ending effect")
			c.owner.Kill()
			removed[c.entryID] = true
			return nil
		}
		return res
	}

	ctx := fade.Context{Head: s.headForTarget(targetID)}
	res, err := fade.Fade(kind, from, to, t, ctx)
	if err != nil {
		log.WithError(err).WithField("effect_id", c.owner.ID()).Error("fade failed; ending effect")
		c.owner.Kill()
		removed[c.entryID] = true
		return nil
	}
	return res
}

func isBuiltinKind(kind effect.Kind) bool {
	for _, k := range BuiltinResolutionOrder {
		if k == kind {
			return true
		}
	}
	return false
}

// headForTarget extracts the (fixtureID, headIndex) a built-in TargetID
// addresses and resolves it to a patched head, for the fade kernel's
// position/orientation-dependent null sides (direction, aim).
func (s *Show) headForTarget(targetID effect.TargetID) *fixture.Head {
	var fixtureID string
	var headIndex int
	switch t := targetID.(type) {
	case effect.ChannelTarget:
		fixtureID, headIndex = t.FixtureID, t.HeadIndex
	case effect.FunctionTarget:
		fixtureID, headIndex = t.FixtureID, t.HeadIndex
	case effect.ColorTarget:
		fixtureID, headIndex = t.FixtureID, t.HeadIndex
	case effect.PanTiltTarget:
		fixtureID, headIndex = t.FixtureID, t.HeadIndex
	case effect.DirectionTarget:
		fixtureID, headIndex = t.FixtureID, t.HeadIndex
	case effect.AimTarget:
		fixtureID, headIndex = t.FixtureID, t.HeadIndex
	default:
		return nil
	}
	_, h, ok := s.headFor(fixtureID, headIndex)
	if !ok {
		return nil
	}
	return h
}

// sendToTransport hands every universe's current buffer to the configured
// Transport (spec §4.10 step 6). A transport failure is reported on the
// error channel rather than aborting the frame (spec §7).
func (s *Show) sendToTransport() {
	if s.transport == nil {
		return
	}
	s.universesMu.Lock()
	frames := make(map[int][512]byte, len(s.universes))
	for num, u := range s.universes {
		frames[num] = u.Bytes()
	}
	s.universesMu.Unlock()

	for num, bytes := range frames {
		if err := s.transport.Send(num, bytes); err != nil {
			reportErr := fmt.Errorf("render: transport send failed for universe %d: %w", num, err)
			select {
			case s.errCh <- reportErr:
			default:
			}
		}
	}
}
