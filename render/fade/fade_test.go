package fade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robmorgan/lumen/color"
	"github.com/robmorgan/lumen/effect"
)

func chAssignment(v float64) *effect.Assignment {
	return &effect.Assignment{Kind: effect.KindChannel, TargetID: effect.ChannelTarget{FixtureID: "fx1", Channel: "dimmer"}, Value: v}
}

func TestFadeChannelBoundaries(t *testing.T) {
	t.Parallel()

	from, to := chAssignment(0), chAssignment(100)

	got, err := Fade(effect.KindChannel, from, to, 0, Context{})
	require.NoError(t, err)
	assert.Same(t, from, got)

	got, err = Fade(effect.KindChannel, from, to, 1, Context{})
	require.NoError(t, err)
	assert.Same(t, to, got)

	got, err = Fade(effect.KindChannel, from, to, 0.5, Context{})
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Value)
}

func TestFadeChannelNilSideIsZero(t *testing.T) {
	t.Parallel()

	to := chAssignment(100)
	got, err := Fade(effect.KindChannel, nil, to, 0.25, Context{})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, got.Value.(float64), 0.0001)
}

func TestFadeFunctionSameTagLinear(t *testing.T) {
	t.Parallel()

	target := effect.FunctionTarget{FixtureID: "fx1", Tag: "gobo"}
	from := &effect.Assignment{Kind: effect.KindFunction, TargetID: target, Value: effect.FunctionValue{Tag: "gobo", Percent: 0}}
	to := &effect.Assignment{Kind: effect.KindFunction, TargetID: target, Value: effect.FunctionValue{Tag: "gobo", Percent: 100}}

	got, err := Fade(effect.KindFunction, from, to, 0.5, Context{})
	require.NoError(t, err)
	fv := got.Value.(effect.FunctionValue)
	assert.InDelta(t, 50.0, fv.Percent, 0.0001)
}

func TestFadeFunctionFadingOutScalesByDistance(t *testing.T) {
	t.Parallel()

	target := effect.FunctionTarget{FixtureID: "fx1", Tag: "gobo"}
	from := &effect.Assignment{Kind: effect.KindFunction, TargetID: target, Value: effect.FunctionValue{Tag: "gobo", Percent: 100}}

	got, err := Fade(effect.KindFunction, from, nil, 0.25, Context{})
	require.NoError(t, err)
	fv := got.Value.(effect.FunctionValue)
	assert.InDelta(t, 75.0, fv.Percent, 0.0001)
}

func TestFadeColorNullSideDarkens(t *testing.T) {
	t.Parallel()

	target := effect.ColorTarget{FixtureID: "fx1"}
	from := &effect.Assignment{Kind: effect.KindColor, TargetID: target, Value: color.New(0, 100, 50)}

	got, err := Fade(effect.KindColor, from, nil, 0.5, Context{})
	require.NoError(t, err)
	c := got.Value.(color.HSL)
	assert.InDelta(t, 25.0, c.L, 0.5)
	assert.Greater(t, c.S, 0.0)
}

func TestFadeMismatchedKindFailsFast(t *testing.T) {
	t.Parallel()

	a := chAssignment(0)
	b := &effect.Assignment{Kind: effect.KindColor, TargetID: effect.ColorTarget{FixtureID: "fx1"}, Value: color.New(0, 0, 0)}

	_, err := Fade(effect.KindChannel, a, b, 0.5, Context{})
	require.Error(t, err)
}

func TestFadeMismatchedTargetFailsFast(t *testing.T) {
	t.Parallel()

	a := chAssignment(0)
	b := &effect.Assignment{Kind: effect.KindChannel, TargetID: effect.ChannelTarget{FixtureID: "fx2", Channel: "dimmer"}, Value: 1.0}

	_, err := Fade(effect.KindChannel, a, b, 0.5, Context{})
	require.Error(t, err)
}
