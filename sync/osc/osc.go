// Package osc implements rhythm.SyncSource over OSC beat messages using
// github.com/hypebeast/go-osc, the same client/server package the teacher's
// legacy/oscproxy/main.go drives with its own osc.Dispatcher. That proxy
// only logged and re-triggered playlists; this listener instead tracks the
// most recent tempo announced on a configurable OSC address and hands it to
// render.Show.Sync at tap time.
package osc

import (
	"sync"

	"github.com/hypebeast/go-osc/osc"
)

// DefaultAddress is the OSC address this listener watches by default, a
// single float32 argument giving the current tempo in beats per minute.
const DefaultAddress = "/lumen/bpm"

// Listener is a rhythm.SyncSource fed by an OSC server. The zero value is
// not usable; construct with NewListener.
type Listener struct {
	address string

	mu    sync.Mutex
	bpm   float64
	valid bool
}

// NewListener creates a Listener watching the given OSC address. An empty
// address defaults to DefaultAddress.
func NewListener(address string) *Listener {
	if address == "" {
		address = DefaultAddress
	}
	return &Listener{address: address}
}

// Dispatch implements osc.Dispatcher, mirroring the teacher's Debugger.
// Dispatch switch-on-address-then-argument-type shape. Any packet on an
// address other than l.address, or with a malformed first argument, is
// ignored rather than treated as an error — an OSC peer announcing an
// unrelated address is ordinary traffic, not a fault.
func (l *Listener) Dispatch(packet osc.Packet) {
	msg, ok := packet.(*osc.Message)
	if !ok || msg.Address != l.address || len(msg.Arguments) == 0 {
		return
	}

	var bpm float64
	switch v := msg.Arguments[0].(type) {
	case float32:
		bpm = float64(v)
	case float64:
		bpm = v
	case int32:
		bpm = float64(v)
	default:
		return
	}
	if bpm <= 0 {
		return
	}

	l.mu.Lock()
	l.bpm = bpm
	l.valid = true
	l.mu.Unlock()
}

// Tempo implements rhythm.SyncSource.
func (l *Listener) Tempo() (bpm float64, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bpm, l.valid
}

// ListenAndServe blocks serving OSC messages on addr (e.g. "127.0.0.1:8000"),
// the same server/dispatcher pairing the teacher's oscproxy main wires up.
func (l *Listener) ListenAndServe(addr string) error {
	server := &osc.Server{Addr: addr, Dispatcher: l}
	return server.ListenAndServe()
}
