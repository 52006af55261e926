package ola

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	lastUniverse int
	lastValues   []byte
	ok           bool
	err          error
	closed       bool
}

func (f *fakeClient) SendDmx(universe int, values []byte) (bool, error) {
	f.lastUniverse = universe
	f.lastValues = append([]byte(nil), values...)
	return f.ok, f.err
}

func (f *fakeClient) Close() { f.closed = true }

func TestSendForwardsFrameBytes(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{ok: true}
	tr := New(fc)

	var frame [512]byte
	frame[0] = 255
	frame[511] = 7

	require.NoError(t, tr.Send(3, frame))
	assert.Equal(t, 3, fc.lastUniverse)
	assert.Equal(t, byte(255), fc.lastValues[0])
	assert.Equal(t, byte(7), fc.lastValues[511])
	assert.Len(t, fc.lastValues, 512)
}

func TestSendReturnsTransportError(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{err: errors.New("connection reset")}
	tr := New(fc)

	err := tr.Send(1, [512]byte{})
	require.Error(t, err)
}

func TestSendReturnsErrorOnRejection(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{ok: false}
	tr := New(fc)

	err := tr.Send(1, [512]byte{})
	require.Error(t, err)
}

func TestCloseDelegates(t *testing.T) {
	t.Parallel()
	fc := &fakeClient{}
	New(fc).Close()
	assert.True(t, fc.closed)
}
