// pm4_memory.go - PM4 guest memory gateway for the Intuition Engine GPU command processor

/*
pm4_memory.go - Memory Gateway (C3)

Narrows the machine's byte-addressable memory down to the handful of
operations the command processor actually needs: translate a guest address
that encodes a byte-swap mode in its low bits (§6), then read or write a
32-bit word applying that swap. Grounded on machine_bus.go's MachineBus,
whose GetMemory() already hands back the backing slice directly rather than
forcing every access through its CPU-facing Read32/Write32 (those assume
little-endian CPU-bus semantics, which do not apply to the big-endian guest
words this command processor decodes).
*/

package main

import "encoding/binary"

// Pm4GuestMemory is the narrow view of guest memory the command processor
// is allowed to see. The interpreter never holds a raw pointer or the
// backing bus itself, only this interface (§6 Design Note).
type Pm4GuestMemory interface {
	ReadU32(addr uint32) uint32
	WriteU32(addr uint32, value uint32)
	ReadBytes(addr uint32, n uint32) []byte
}

// pm4MachineMemory adapts a *MachineBus's raw slice to Pm4GuestMemory.
type pm4MachineMemory struct {
	mem []byte
}

// NewPm4GuestMemory wraps an existing MachineBus's backing memory for use
// by the command processor.
func NewPm4GuestMemory(bus *MachineBus) Pm4GuestMemory {
	return &pm4MachineMemory{mem: bus.GetMemory()}
}

// ReadU32 translates addr (stripping its endianness-mode bits), reads the
// big-endian guest word at the aligned address, and applies the swap the
// address encoded.
func (m *pm4MachineMemory) ReadU32(addr uint32) uint32 {
	aligned, mode := DecodeAddressEndianness(addr)
	raw := binary.BigEndian.Uint32(m.mem[aligned : aligned+WordSize])
	return swapForMode(raw, mode)
}

// WriteU32 applies the inverse swap and stores the result as a big-endian
// guest word at the aligned address.
func (m *pm4MachineMemory) WriteU32(addr uint32, value uint32) {
	aligned, mode := DecodeAddressEndianness(addr)
	binary.BigEndian.PutUint32(m.mem[aligned:aligned+WordSize], swapForMode(value, mode))
}

// ReadBytes returns a direct view of n bytes of guest memory starting at
// addr, with no endianness translation; the caller does its own word
// assembly. The command processor itself does not call it.
func (m *pm4MachineMemory) ReadBytes(addr uint32, n uint32) []byte {
	return m.mem[addr : addr+n]
}

// swapForMode applies one of the four Xenos-style endianness swaps encoded
// in a guest address's low 2 bits (§6):
//
//	EndianNone    - value is used as-is
//	Endian8in16   - byte-swap within each 16-bit half
//	Endian8in32   - byte-swap across the full 32-bit word
//	Endian16in32  - swap the two 16-bit halves, bytes within each untouched
func swapForMode(v uint32, mode AddressEndianness) uint32 {
	switch mode {
	case Endian8in16:
		return ((v & 0x00FF00FF) << 8) | ((v & 0xFF00FF00) >> 8)
	case Endian8in32:
		return ((v & 0x000000FF) << 24) |
			((v & 0x0000FF00) << 8) |
			((v & 0x00FF0000) >> 8) |
			((v & 0xFF000000) >> 24)
	case Endian16in32:
		return (v << 16) | (v >> 16)
	default:
		return v
	}
}
