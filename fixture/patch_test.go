package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dimmerDef() FixtureDef {
	return FixtureDef{
		Name: "single-dimmer",
		Channels: []ChannelDef{
			{Kind: KindDimmer, Offset: 1},
		},
	}
}

func rgbDimmerDef() FixtureDef {
	return FixtureDef{
		Name: "rgb-par",
		Channels: []ChannelDef{
			{Kind: KindColor, Offset: 1, Hue: 0},
			{Kind: KindColor, Offset: 2, Hue: 120},
			{Kind: KindColor, Offset: 3, Hue: 240},
			{Kind: KindDimmer, Offset: 4},
		},
	}
}

func TestPatchAssignsAbsoluteAddresses(t *testing.T) {
	t.Parallel()

	var table PatchTable
	f, err := table.Patch(dimmerDef(), "fx1", 1, 10, Placement{})
	require.NoError(t, err)

	require.Len(t, f.Channels, 1)
	assert.Equal(t, 1, f.Universe)
	assert.Equal(t, 10, f.Channels[0].Address)

	// A headless fixture patches one implicit head sharing its placement.
	require.Len(t, f.Heads, 1)
	assert.Equal(t, f.Position, f.Heads[0].Position)
}

func TestPatchRejectsOverlap(t *testing.T) {
	t.Parallel()

	var table PatchTable
	_, err := table.Patch(rgbDimmerDef(), "fx1", 1, 1, Placement{})
	require.NoError(t, err)

	_, err = table.Patch(dimmerDef(), "fx2", 1, 4, Placement{})
	require.Error(t, err)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.Universe)
	assert.Equal(t, 4, conflict.Address)
}

func TestPatchRejectsOverlapAtomically(t *testing.T) {
	t.Parallel()

	var table PatchTable
	_, err := table.Patch(dimmerDef(), "fx1", 1, 4, Placement{})
	require.NoError(t, err)

	// fx2 claims addresses 3 and 4; 4 conflicts, so address 3 must not be
	// left reserved afterward.
	def := FixtureDef{Channels: []ChannelDef{{Kind: KindDimmer, Offset: 3}, {Kind: KindDimmer, Offset: 4}}}
	_, err = table.Patch(def, "fx2", 1, 1, Placement{})
	require.Error(t, err)

	// Address 3 should still be free.
	_, err = table.Patch(dimmerDef(), "fx3", 1, 3, Placement{})
	require.NoError(t, err)
}

func TestPatchDifferentUniversesDoNotConflict(t *testing.T) {
	t.Parallel()

	var table PatchTable
	_, err := table.Patch(dimmerDef(), "fx1", 1, 10, Placement{})
	require.NoError(t, err)

	_, err = table.Patch(dimmerDef(), "fx2", 2, 10, Placement{})
	require.NoError(t, err)
}

func TestPatchFineChannel(t *testing.T) {
	t.Parallel()

	def := FixtureDef{Channels: []ChannelDef{{Kind: KindPan, Offset: 1, FineOffset: 2}}}

	var table PatchTable
	f, err := table.Patch(def, "fx1", 1, 10, Placement{})
	require.NoError(t, err)

	ch := f.Channels[0]
	assert.True(t, ch.HasFine())
	assert.Equal(t, 10, ch.Address)
	assert.Equal(t, 11, ch.FineAddress)
}
