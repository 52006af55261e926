// Package render implements the composition/resolution/scheduling core of
// spec §4.7-§4.10: the single-threaded frame loop that folds every active
// effect's assigners into one resolved Assignment per (kind, target) and
// writes the result into DMX universe buffers or extension buffers. It
// generalizes the teacher's cuelist.Master/engine game loop (ticker-driven,
// clock.Clock-based) into the spec's fixed eight-step pipeline.
package render

// Universe is one 512-byte DMX universe buffer. Address 1 is byte index 0,
// per spec §6 "byte 1 corresponds to DMX address 1".
type Universe struct {
	buf [512]byte
}

// Clear zeroes every byte, per spec §4.10 step 2.
func (u *Universe) Clear() {
	for i := range u.buf {
		u.buf[i] = 0
	}
}

// Set writes a byte at the given 1-based DMX address. Addresses outside
// [1,512] are ignored.
func (u *Universe) Set(address int, value byte) {
	if address < 1 || address > 512 {
		return
	}
	u.buf[address-1] = value
}

// Get reads a byte at the given 1-based DMX address.
func (u *Universe) Get(address int) byte {
	if address < 1 || address > 512 {
		return 0
	}
	return u.buf[address-1]
}

// Bytes returns the full 512-byte buffer, for handing to a transport.
func (u *Universe) Bytes() [512]byte {
	return u.buf
}
