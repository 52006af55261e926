package render

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/robmorgan/lumen/effect"
	"github.com/robmorgan/lumen/fixture"
	"github.com/robmorgan/lumen/render/ext"
	"github.com/robmorgan/lumen/rhythm"
)

// ShowConfig holds the configuration options of spec §6.
type ShowConfig struct {
	// RefreshInterval is how often the renderer produces a frame. Default
	// 25ms, minimum 5ms.
	RefreshInterval time.Duration

	// ColorWheelHueTolerance is the maximum hue distance, in degrees, a
	// wheel entry may be from the target color and still be selected.
	// Default 60.
	ColorWheelHueTolerance float64

	// ColorWheelMinSaturation is the minimum target saturation, in
	// percent, for wheel selection to apply at all. Default 40.
	ColorWheelMinSaturation float64

	// BarLength is the metronome's bar length in beats. Default 4.
	BarLength int

	// PhraseLength is the metronome's phrase length in bars. Default 8.
	PhraseLength int
}

// DefaultShowConfig returns the spec's documented defaults.
func DefaultShowConfig() ShowConfig {
	return ShowConfig{
		RefreshInterval:         25 * time.Millisecond,
		ColorWheelHueTolerance:  60,
		ColorWheelMinSaturation: 40,
		BarLength:               4,
		PhraseLength:            8,
	}
}

// Metrics is the live record of spec §6: a snapshot of the renderer's
// running performance. RecentDurations is a ring buffer of the most
// recent 30 frame durations. Values holds whatever an effect most recently
// exported via a KindMetric assigner (render/ext's metrics extension),
// keyed by render/ext.MetricTarget.Name.
type Metrics struct {
	Version         string
	TotalTime       time.Duration
	FramesSent      uint64
	AverageDuration time.Duration
	RecentDurations []time.Duration
	RecentOverruns  uint64
	Values          map[string]float64
}

const metricsRingSize = 30

// command is a control-plane mutation enqueued for the start of the next
// frame (spec §5: "communicate with the renderer via a thread-safe
// command queue drained at the start of each frame").
type command func(s *Show)

// Show is the control-plane object of spec §6: a running lighting show
// with patched fixtures, a metronome, an active-effects list, and a
// transport. Its methods are the literal operations §6 lists. AddEffect,
// EndEffect and ClearEffects enqueue a command that the next frame applies;
// PatchFixture takes effect synchronously; the variable, metronome and
// extension methods act directly, without the queue. Construct with NewShow.
type Show struct {
	config ShowConfig

	metronome  *rhythm.Metronome
	extensions *ext.Registry

	fixturesMu sync.Mutex
	patchTable fixture.PatchTable
	fixtures   map[string]*fixture.Fixture
	groups     map[string]*fixture.Group

	variablesMu sync.Mutex
	variables   map[string]interface{}

	universesMu sync.Mutex
	universes   map[int]*Universe

	effectsMu     sync.Mutex
	activeEffects []*effectEntry
	nextSequence  uint64

	commands chan command

	metricsMu       sync.Mutex
	metrics         Metrics
	clampedChannels uint64

	transport Transport
	errCh     chan error

	clock   clock.Clock
	stopCh  chan struct{}
	stopped chan struct{}
	running int32

	nextFixtureID uint64
}

// effectEntry pairs a submitted effect with the key it was registered
// under, for end-effect lookup.
type effectEntry struct {
	id     string
	effect *effect.Effect
}

// Transport hands a frame's universe buffers downstream, e.g. to an
// sACN/Art-Net/OLA daemon. transport/ola implements this against
// github.com/nickysemenza/gola.
type Transport interface {
	Send(universe int, frame [512]byte) error
}

// Option configures a Show at construction time.
type Option func(*Show)

// WithConfig overrides the default ShowConfig.
func WithConfig(cfg ShowConfig) Option { return func(s *Show) { s.config = cfg } }

// WithTransport sets the DMX transport frames are sent to.
func WithTransport(t Transport) Option { return func(s *Show) { s.transport = t } }

// WithClock overrides the scheduler's clock, for deterministic tests
// (clock.NewFakeClock). Defaults to clock.RealClock{}.
func WithClock(c clock.Clock) Option { return func(s *Show) { s.clock = c } }

// NewShow constructs a Show. The metronome's bar/phrase length should
// already reflect cfg.BarLength/PhraseLength if non-default; NewShow does
// not mutate the metronome it's given.
func NewShow(metronome *rhythm.Metronome, opts ...Option) *Show {
	s := &Show{
		config:     DefaultShowConfig(),
		metronome:  metronome,
		extensions: ext.NewRegistry(),
		fixtures:   make(map[string]*fixture.Fixture),
		groups:     make(map[string]*fixture.Group),
		variables:  make(map[string]interface{}),
		universes:  make(map[int]*Universe),
		commands:   make(chan command, 256),
		metrics:    Metrics{Version: "1"},
		clock:      clock.RealClock{},
		errCh:      make(chan error, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.RefreshInterval < 5*time.Millisecond {
		s.config.RefreshInterval = 5 * time.Millisecond
	}

	variableBuf := ext.NewVariableExtension(func(values map[string]interface{}) {
		s.variablesMu.Lock()
		for k, v := range values {
			s.variables[k] = v
		}
		s.variablesMu.Unlock()
	})
	_ = s.extensions.Register(variableBuf)

	metricsBuf := ext.NewMetricsExtension(func(values map[string]float64) {
		s.metricsMu.Lock()
		if s.metrics.Values == nil {
			s.metrics.Values = make(map[string]float64, len(values))
		}
		for k, v := range values {
			s.metrics.Values[k] = v
		}
		s.metricsMu.Unlock()
	})
	_ = s.extensions.Register(metricsBuf)

	return s
}

// universe returns (creating if necessary) the Universe buffer for the
// given universe number.
func (s *Show) universe(n int) *Universe {
	s.universesMu.Lock()
	defer s.universesMu.Unlock()
	u, ok := s.universes[n]
	if !ok {
		u = &Universe{}
		s.universes[n] = u
	}
	return u
}

// Universe exposes a universe's current buffer, e.g. for inspection in
// tests or a console UI.
func (s *Show) Universe(n int) [512]byte {
	return s.universe(n).Bytes()
}

// PatchFixture binds a fixture definition to a universe and base address
// (spec §6 patch-fixture). Patching is synchronous, not queued: a patch
// conflict must be reported to the caller immediately and leave no
// partial state (spec §7), which a deferred command cannot guarantee
// without blocking the caller on the next frame tick.
func (s *Show) PatchFixture(universeNum, baseAddress int, def fixture.FixtureDef, placement fixture.Placement) (string, error) {
	s.fixturesMu.Lock()
	defer s.fixturesMu.Unlock()

	id := fmt.Sprintf("%s-%d", def.Name, atomic.AddUint64(&s.nextFixtureID, 1))
	f, err := s.patchTable.Patch(def, id, universeNum, baseAddress, placement)
	if err != nil {
		return "", err
	}
	s.fixtures[id] = f
	return id, nil
}

// GetFixture looks up a patched fixture by id.
func (s *Show) GetFixture(id string) (*fixture.Fixture, error) {
	s.fixturesMu.Lock()
	defer s.fixturesMu.Unlock()
	f, ok := s.fixtures[id]
	if !ok {
		return nil, fmt.Errorf("render: no fixture patched with id %q", id)
	}
	return f, nil
}

// AddFixtureGroup registers a named group of fixtures for FixtureGroup
// lookups from effect generators.
func (s *Show) AddFixtureGroup(name string, group *fixture.Group) {
	s.fixturesMu.Lock()
	defer s.fixturesMu.Unlock()
	s.groups[name] = group
}

// FixtureGroup implements effect.ShowContext.
func (s *Show) FixtureGroup(name string) (*fixture.Group, error) {
	s.fixturesMu.Lock()
	defer s.fixturesMu.Unlock()
	g, ok := s.groups[name]
	if !ok {
		return nil, fmt.Errorf("render: no fixture group named %q", name)
	}
	return g, nil
}

// AddEffect submits a new effect at the given priority (spec §6
// add-effect). The renderer assigns the effect's insertion-order
// tiebreaker; the effect becomes active at the next frame boundary.
func (s *Show) AddEffect(priority int, key string, e *effect.Effect) string {
	e.SetPriority(priority)
	s.enqueue(func(s *Show) {
		s.effectsMu.Lock()
		defer s.effectsMu.Unlock()
		e.SetSequence(s.nextSequence)
		s.nextSequence++
		s.activeEffects = append(s.activeEffects, &effectEntry{id: key, effect: e})
	})
	return key
}

// EndEffect requests the effect with the given id begin graceful shutdown
// (spec §6 end-effect).
func (s *Show) EndEffect(id string) {
	s.enqueue(func(s *Show) {
		s.effectsMu.Lock()
		defer s.effectsMu.Unlock()
		for _, entry := range s.activeEffects {
			if entry.id == id {
				entry.effect.End(s, s.metronome.Snapshot())
				return
			}
		}
	})
}

// ClearEffects immediately removes every active effect, bypassing
// fade-out (spec §6 clear-effects).
func (s *Show) ClearEffects() {
	s.enqueue(func(s *Show) {
		s.effectsMu.Lock()
		defer s.effectsMu.Unlock()
		s.activeEffects = nil
	})
}

// SetVariable sets a named show variable (spec §6 set-variable).
func (s *Show) SetVariable(name string, value interface{}) {
	s.variablesMu.Lock()
	defer s.variablesMu.Unlock()
	s.variables[name] = value
}

// GetVariable reads a named show variable (spec §6 get-variable).
func (s *Show) GetVariable(name string) (interface{}, bool) {
	s.variablesMu.Lock()
	defer s.variablesMu.Unlock()
	v, ok := s.variables[name]
	return v, ok
}

// Variable implements effect.ShowContext.
func (s *Show) Variable(name string) (interface{}, bool) { return s.GetVariable(name) }

// MetronomeTap registers a tap-tempo beat (spec §6 metronome-tap).
func (s *Show) MetronomeTap() { s.metronome.TapTempo() }

// Sync applies an external tempo source (spec §6 sync).
func (s *Show) Sync(src rhythm.SyncSource) { s.metronome.Sync(src) }

// SetBPM sets the metronome's tempo directly (spec §6 set-bpm).
func (s *Show) SetBPM(bpm float64) { s.metronome.SetBPM(bpm) }

// BPM reads the metronome's current tempo, for consoles and status displays.
func (s *Show) BPM() float64 { return s.metronome.Tempo() }

// RegisterExtension adds an assignment kind beyond DMX (spec §6
// register-extension).
func (s *Show) RegisterExtension(e *ext.Extension) error {
	return s.extensions.Register(e)
}

// MetricsSnapshot returns a copy of the live metrics record.
func (s *Show) MetricsSnapshot() Metrics {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	m := s.metrics
	m.RecentDurations = append([]time.Duration(nil), s.metrics.RecentDurations...)
	if s.metrics.Values != nil {
		m.Values = make(map[string]float64, len(s.metrics.Values))
		for k, v := range s.metrics.Values {
			m.Values[k] = v
		}
	}
	return m
}

func (s *Show) recordFrame(d time.Duration, overran bool) {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.TotalTime += d
	s.metrics.FramesSent++
	s.metrics.RecentDurations = append(s.metrics.RecentDurations, d)
	if len(s.metrics.RecentDurations) > metricsRingSize {
		s.metrics.RecentDurations = s.metrics.RecentDurations[len(s.metrics.RecentDurations)-metricsRingSize:]
	}
	var sum time.Duration
	for _, rd := range s.metrics.RecentDurations {
		sum += rd
	}
	s.metrics.AverageDuration = sum / time.Duration(len(s.metrics.RecentDurations))
	if overran {
		s.metrics.RecentOverruns++
	}
}

func (s *Show) enqueue(cmd command) {
	s.commands <- cmd
}

func (s *Show) drainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			cmd(s)
		default:
			return
		}
	}
}
