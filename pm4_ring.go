// pm4_ring.go - PM4 ring buffer reader for the Intuition Engine GPU command processor

/*
pm4_ring.go - Ring Reader (C1)

Implements a wrapping byte cursor over a guest-physical command ring: typed,
endian-swapping 32-bit reads with transparent wraparound at the ring's
power-of-two byte capacity. Mirrors the page-mapped access style of
memory_bus.go's SystemBus, but operates directly on a caller-supplied byte
window rather than owning the whole address space, since the ring is only
ever a sub-range of guest physical memory.
*/

package main

import "encoding/binary"

// Pm4RingReader is a circular byte cursor over a guest command ring.
// Words are stored big-endian in guest memory (§3) and are byte-swapped to
// host order on read.
type Pm4RingReader struct {
	mem         []byte // backing guest memory (shared, not owned)
	base        uint32 // offset into mem where the ring starts
	capacity    uint32 // ring size in bytes, power of two
	readOffset  uint32 // 0 <= readOffset < capacity
	writeOffset uint32 // 0 <= writeOffset < capacity
}

// NewPm4RingReader creates a reader over a ring window of mem[base:base+capacity].
func NewPm4RingReader(mem []byte, base, capacity uint32) *Pm4RingReader {
	return &Pm4RingReader{mem: mem, base: base, capacity: capacity}
}

// SetWriteOffset updates the producer-visible write cursor (advanced by the
// guest CPU, observed here so ReadCount reflects outstanding data).
func (r *Pm4RingReader) SetWriteOffset(offset uint32) {
	if r.capacity != 0 {
		offset %= r.capacity
	}
	r.writeOffset = offset
}

// ReadOffset returns the current read cursor, for invariant assertions.
func (r *Pm4RingReader) ReadOffset() uint32 { return r.readOffset }

// ReadCount returns the number of bytes available to read (§3).
func (r *Pm4RingReader) ReadCount() uint32 {
	if r.capacity == 0 {
		return 0
	}
	return (r.writeOffset - r.readOffset + r.capacity) % r.capacity
}

// Advance moves the read cursor forward nBytes, wrapping at capacity.
func (r *Pm4RingReader) Advance(nBytes uint32) {
	if r.capacity == 0 {
		return
	}
	r.readOffset = (r.readOffset + nBytes) % r.capacity
}

// PrefetchReadWindow is a hint only; platforms without a prefetch primitive
// treat it as a no-op (§4.1).
func (r *Pm4RingReader) PrefetchReadWindow(nBytes uint32) {
	// Intentionally empty: no portable prefetch primitive in Go.
}

// ReadU32Swapped reads the next 32-bit word at the read cursor, advances by
// 4 bytes (mod capacity), and byte-swaps it from guest (big-endian) to host
// order. The caller must check ReadCount() >= 4 first; reading past the
// available data still returns a value (the ring wraps transparently) but
// is a caller bug if data wasn't actually produced yet.
func (r *Pm4RingReader) ReadU32Swapped() uint32 {
	word := r.peekU32At(r.readOffset)
	r.Advance(WordSize)
	return word
}

// peekU32At reads a big-endian 32-bit word starting at the given ring-local
// offset without advancing the cursor, assembling it byte-by-byte when the
// 4 bytes straddle the capacity boundary so callers never observe a torn
// wraparound read.
func (r *Pm4RingReader) peekU32At(offset uint32) uint32 {
	if offset+WordSize <= r.capacity {
		start := r.base + offset
		return binary.BigEndian.Uint32(r.mem[start : start+WordSize])
	}
	var buf [WordSize]byte
	for i := uint32(0); i < WordSize; i++ {
		buf[i] = r.mem[r.base+(offset+i)%r.capacity]
	}
	return binary.BigEndian.Uint32(buf[:])
}

// Snapshot captures the reader's cursor state for save/restore across
// INDIRECT_BUFFER recursion (§3 "Indirect buffer frame", §4.6 step 3/§9).
func (r *Pm4RingReader) Snapshot() Pm4RingReader {
	return *r
}

// Restore puts the reader back into a previously captured state.
func (r *Pm4RingReader) Restore(snap Pm4RingReader) {
	*r = snap
}
