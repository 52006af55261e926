// Package ola implements render.Transport against an Open Lighting
// Architecture daemon via github.com/nickysemenza/gola, the same client the
// teacher's SendDMXWorker (fixture/dmx_writer.go) drives from a ticker loop
// in main.go. This package keeps that worker shape but drives it from
// render.Show's own frame loop instead of a second ticker, since the show
// already calls Transport.Send once per rendered frame.
package ola

import (
	"fmt"

	"github.com/nickysemenza/gola"
)

// Client is the subset of *gola.Client this package depends on, so tests can
// substitute a fake without dialing a real OLA daemon.
type Client interface {
	SendDmx(universe int, values []byte) (status bool, err error)
	Close()
}

// Transport sends rendered universes to OLA over a gola.Client. The zero
// value is not usable; construct with Dial or New.
type Transport struct {
	client Client
}

// Dial connects to an olad instance at addr (e.g. "localhost:9010"), the
// address the teacher's main.go hard-codes.
func Dial(addr string) (*Transport, error) {
	client, err := gola.New(addr)
	if err != nil {
		return nil, fmt.Errorf("transport/ola: dial %s: %w", addr, err)
	}
	return New(client), nil
}

// New wraps an already-connected client, e.g. a fake for tests.
func New(client Client) *Transport {
	return &Transport{client: client}
}

// Send implements render.Transport. OLA addresses universes with 0-based
// channel slices; DMX channel N lives at index N-1, the same offset the
// teacher's DMXState.set applies.
func (t *Transport) Send(universe int, frame [512]byte) error {
	ok, err := t.client.SendDmx(universe, frame[:])
	if err != nil {
		return fmt.Errorf("transport/ola: send universe %d: %w", universe, err)
	}
	if !ok {
		return fmt.Errorf("transport/ola: olad rejected universe %d", universe)
	}
	return nil
}

// Close releases the underlying OLA connection.
func (t *Transport) Close() { t.client.Close() }
