package fixture

import (
	"fmt"

	"golang.org/x/exp/maps"
)

// Group is a named collection of patched fixtures, generalized from the
// teacher's fixture.Group (fixture/group.go) which did the same bookkeeping
// for a flat, un-typed fixture map. Every patched Fixture carries one or
// more Heads (spec §3 expansion: a fixture with no HeadDefs still gets an
// implicit head at index 0), so a group doubles as a collection of heads —
// effect generators built for moving-head shows ("all heads", "all heads
// that can move") work against the group without re-deriving that walk
// themselves.
type Group struct {
	Fixtures map[string]*Fixture
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{Fixtures: make(map[string]*Fixture)}
}

// GetFixture looks up a fixture by id.
func (g *Group) GetFixture(id string) (*Fixture, error) {
	if f, ok := g.Fixtures[id]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("fixture group does not contain a fixture with id: %s", id)
}

// GetHead looks up a single head by (fixture id, head index) within the
// group, the unit most generator code actually addresses (every built-in
// Assigner targets a head, not a whole fixture).
func (g *Group) GetHead(fixtureID string, headIndex int) (*Head, error) {
	f, err := g.GetFixture(fixtureID)
	if err != nil {
		return nil, err
	}
	h := f.Head(headIndex)
	if h == nil {
		return nil, fmt.Errorf("fixture group: fixture %q has no head at index %d", fixtureID, headIndex)
	}
	return h, nil
}

// Heads flattens every head of every fixture in the group into one slice,
// for generators that operate per-head across a whole group ("chase across
// all heads") rather than per-fixture.
func (g *Group) Heads() []*Head {
	var out []*Head
	for _, f := range g.Fixtures {
		out = append(out, f.Heads...)
	}
	return out
}

// MovingHeads is Heads filtered to those with a usable pan/tilt
// Calibration, for generators that only make sense on heads that move
// (spec §3's pan-tilt/direction/aim kinds).
func (g *Group) MovingHeads() []*Head {
	var out []*Head
	for _, h := range g.Heads() {
		if h.HasMovement() {
			out = append(out, h)
		}
	}
	return out
}

// AddFixture adds a fixture to the group under the given id.
func (g *Group) AddFixture(id string, f *Fixture) {
	g.Fixtures[id] = f
}

// HasFixture reports whether the group contains the given id.
func (g *Group) HasFixture(id string) bool {
	_, ok := g.Fixtures[id]
	return ok
}

// HasFixtures reports whether the group is non-empty.
func (g *Group) HasFixtures() bool {
	return len(g.Fixtures) > 0
}

// Count returns the number of fixtures in the group.
func (g *Group) Count() int {
	return len(g.Fixtures)
}

// Merge copies the fixtures of the given groups into this one and returns
// it, for building ad-hoc fixture groups ("all moving heads", "all front
// pars") out of smaller ones.
func (g *Group) Merge(groups ...*Group) *Group {
	for _, other := range groups {
		maps.Copy(g.Fixtures, other.Fixtures)
	}
	return g
}
