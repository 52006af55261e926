package fixture

import (
	"fmt"

	"github.com/robmorgan/lumen/spatial"
)

// ConflictError reports that a patch operation would claim a DMX address
// already in use within a universe.
type ConflictError struct {
	Universe int
	Address  int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("patch conflict: universe %d address %d is already in use", e.Universe, e.Address)
}

// PatchTable tracks which (universe, address) pairs are already claimed, so
// Patch can reject overlapping channel assignments (spec §4.4 invariant).
// The zero value is ready to use.
type PatchTable struct {
	used map[int]map[int]bool
}

func (t *PatchTable) reserve(universe, address int) error {
	if t.used == nil {
		t.used = make(map[int]map[int]bool)
	}
	if t.used[universe] == nil {
		t.used[universe] = make(map[int]bool)
	}
	if t.used[universe][address] {
		return &ConflictError{Universe: universe, Address: address}
	}
	t.used[universe][address] = true
	return nil
}

// Patch binds a fixture definition to a universe and base address at the
// given placement, producing a Fixture whose every channel has an absolute
// address. On a conflict, no partial state is recorded: either every
// channel the fixture declares is reserved, or none are and an error is
// returned (spec §4.4, §7).
func (t *PatchTable) Patch(def FixtureDef, id string, universe, baseAddress int, placement Placement) (*Fixture, error) {
	if placement.Rotation == (spatial.Mat3{}) {
		// The zero value of Mat3 is the all-zero matrix, not a rotation at
		// all; a caller passing a bare Placement{} means "no rotation",
		// i.e. identity, not "collapse everything to the origin".
		placement.Rotation = spatial.Identity()
	}

	claims := planClaims(def, baseAddress)

	// Reserve every address transactionally: roll back on the first
	// conflict so a rejected patch never leaves the table partially
	// updated.
	reserved := make([]int, 0, len(claims))
	for _, addr := range claims {
		if err := t.reserve(universe, addr); err != nil {
			for _, a := range reserved {
				delete(t.used[universe], a)
			}
			return nil, err
		}
		reserved = append(reserved, addr)
	}

	f := &Fixture{
		ID:       id,
		Universe: universe,
		Address:  baseAddress,
		Position: placement.Position,
		Rotation: placement.Rotation,
	}

	for _, cd := range def.Channels {
		f.Channels = append(f.Channels, patchChannel(cd, universe, baseAddress))
	}

	heads := def.Heads
	if len(heads) == 0 {
		heads = []HeadDef{{Channels: nil}}
	}
	for i, hd := range heads {
		f.Heads = append(f.Heads, patchHead(hd, i, universe, baseAddress, placement))
	}

	return f, nil
}

// planClaims enumerates every absolute DMX address (coarse and fine) a
// fixture definition will need, without mutating the patch table, so a
// conflict can be detected before any reservation is made.
func planClaims(def FixtureDef, baseAddress int) []int {
	var claims []int
	addClaim := func(offset, fineOffset int) {
		claims = append(claims, baseAddress+offset-1)
		if fineOffset > 0 {
			claims = append(claims, baseAddress+fineOffset-1)
		}
	}
	for _, c := range def.Channels {
		addClaim(c.Offset, c.FineOffset)
	}
	for _, h := range def.Heads {
		for _, c := range h.Channels {
			addClaim(c.Offset, c.FineOffset)
		}
	}
	return claims
}

func patchChannel(cd ChannelDef, universe, baseAddress int) *Channel {
	c := &Channel{
		ChannelDef: cd,
		Universe:   universe,
		Address:    baseAddress + cd.Offset - 1,
	}
	if cd.FineOffset > 0 {
		c.FineAddress = baseAddress + cd.FineOffset - 1
	}
	return c
}

func patchHead(hd HeadDef, index, universe, baseAddress int, placement Placement) *Head {
	headRotation := hd.Rotation
	if headRotation == (spatial.Mat3{}) {
		// As in Patch: a zero Mat3 means "no rotation of its own".
		headRotation = spatial.Identity()
	}
	h := &Head{
		Index:       index,
		Position:    placement.Position.Add(placement.Rotation.MulVec3(hd.Position)),
		Rotation:    placement.Rotation.Mul(headRotation),
		Calibration: hd.Calibration,
	}
	for _, cd := range hd.Channels {
		ch := patchChannel(cd, universe, baseAddress)
		h.Channels = append(h.Channels, ch)
		if cd.Kind == KindPan || cd.Kind == KindTilt {
			h.hasMovement = true
		}
	}
	return h
}
