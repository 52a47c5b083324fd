// pm4_registers.go - PM4 register file for the Intuition Engine GPU command processor

/*
pm4_registers.go - Register File (C2)

A fixed-size shadow register array addressed by a 15-bit index, with a
single write funnel that dispatches side effects for the handful of
registers that trigger behaviour beyond plain storage (interrupt ack,
coherency status). Grounded on coprocessor_manager.go's readReg/writeReg
shadow-register switch and video_voodoo.go's fixed regs[N]uint32 array with
address-to-index arithmetic; the ALU/FETCH/BOOL/LOOP/shader constant banks
are not separate arrays, they are just named ranges within the one flat
file, matching how the Design Note collapses bank-specific fast paths into
the general write path rather than special-casing each bank's storage.
*/

package main

import "fmt"

// Pm4RegisterHooks lets the owning command processor observe side-effecting
// register writes/reads without the register file depending on the backend
// or interrupt plumbing directly.
type Pm4RegisterHooks interface {
	// AckInterrupt is invoked when CP_INT_ACK is written.
	AckInterrupt()
	// MakeCoherent is invoked before COHER_STATUS_HOST is read, so the
	// value observed afterwards reflects any backend writes since the
	// last coherency point.
	MakeCoherent()
}

// Pm4RegisterFile is the command processor's register bank.
type Pm4RegisterFile struct {
	regs  [RegisterCount]uint32
	hooks Pm4RegisterHooks
}

// NewPm4RegisterFile creates an empty register file. hooks may be nil, in
// which case side-effecting registers behave as plain storage.
func NewPm4RegisterFile(hooks Pm4RegisterHooks) *Pm4RegisterFile {
	return &Pm4RegisterFile{hooks: hooks}
}

// Write stores value at index and dispatches any side effect the register
// carries. Returns false if index is out of range (a decode-overflow-class
// condition the caller should treat as a handler failure).
func (rf *Pm4RegisterFile) Write(index uint32, value uint32) bool {
	if index >= RegisterCount {
		return false
	}
	rf.regs[index] = value
	switch index {
	case RegCPIntAck:
		if rf.hooks != nil {
			rf.hooks.AckInterrupt()
		}
	}
	return true
}

// Read returns the register at index. COHER_STATUS_HOST is refreshed via
// the hook immediately before the read so callers observe the latest
// backend-reported coherency state.
func (rf *Pm4RegisterFile) Read(index uint32) uint32 {
	if index >= RegisterCount {
		return 0
	}
	if index == RegCoherStatusHost && rf.hooks != nil {
		rf.hooks.MakeCoherent()
	}
	return rf.regs[index]
}

// WriteOneFromRing implements a Type-0 packet with the "write one" bit set:
// every word in the packet's payload is written to the same base register,
// in ring order, with no auto-increment.
func (rf *Pm4RegisterFile) WriteOneFromRing(ring *Pm4RingReader, baseIndex uint32, count uint32) bool {
	ok := true
	for i := uint32(0); i < count; i++ {
		if !rf.Write(baseIndex, ring.ReadU32Swapped()) {
			ok = false
		}
	}
	return ok
}

// WriteRangeFromRing implements the default Type-0 packet behaviour:
// consecutive words are written to consecutive registers starting at
// baseIndex.
func (rf *Pm4RegisterFile) WriteRangeFromRing(ring *Pm4RingReader, baseIndex uint32, count uint32) bool {
	ok := true
	for i := uint32(0); i < count; i++ {
		if !rf.Write(baseIndex+i, ring.ReadU32Swapped()) {
			ok = false
		}
	}
	return ok
}

// constantBank identifies one of the named constant ranges a SET_CONSTANT
// family opcode can target; used for labelling register indices
// (DescribeIndex), while pm4_handlers.go resolves banks itself.
type constantBank int

const (
	bankUnknown constantBank = iota
	bankALU
	bankFetch
	bankBool
	bankLoop
	bankShader
)

// ResolveConstantBank maps a register index to the named bank it falls in,
// per the base/count ranges in pm4_constants.go.
func (rf *Pm4RegisterFile) ResolveConstantBank(index uint32) constantBank {
	switch {
	case index >= RegAluConstantBase && index < RegAluConstantBase+RegAluConstantCount:
		return bankALU
	case index >= RegFetchConstantBase && index < RegFetchConstantBase+RegFetchConstantCount:
		return bankFetch
	case index >= RegBoolConstantBase && index < RegBoolConstantBase+RegBoolConstantCount:
		return bankBool
	case index >= RegLoopConstantBase && index < RegLoopConstantBase+RegLoopConstantCount:
		return bankLoop
	case index >= RegShaderConstantBase && index < RegShaderConstantBase+RegShaderConstantCount:
		return bankShader
	default:
		return bankUnknown
	}
}

// String names a bank for trace/log output.
func (b constantBank) String() string {
	switch b {
	case bankALU:
		return "alu"
	case bankFetch:
		return "fetch"
	case bankBool:
		return "bool"
	case bankLoop:
		return "loop"
	case bankShader:
		return "shader"
	default:
		return "unknown"
	}
}

// DescribeIndex is a small debug helper that labels a register index by
// its constant bank; nothing in the command processor calls it.
func (rf *Pm4RegisterFile) DescribeIndex(index uint32) string {
	if bank := rf.ResolveConstantBank(index); bank != bankUnknown {
		return fmt.Sprintf("%s[%d]", bank, index)
	}
	return fmt.Sprintf("reg[0x%04X]", index)
}
