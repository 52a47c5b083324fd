// pm4_constants.go - PM4 command-stream wire format and register map constants

/*
pm4_constants.go - PM4 Wire Format and Register Map

This module centralizes the constants shared by the PM4 ring reader, packet
decoder, register file and opcode handlers: the packet-type tags, the
Type-3 opcode set, the address-endianness encoding, and the register
indices that the side-effecting banks (ALU/FETCH/BOOL/LOOP/shader constants,
scissor, draw/event/viz state) live at.

See registers.go for the equivalent master address map used by the rest of
the machine's memory-mapped peripherals; this file plays the same role for
the GPU command processor's internal register file.
*/

package main

// =============================================================================
// Ring Buffer / Packet Header Constants
// =============================================================================
const (
	WordSize = 4 // bytes per 32-bit PM4 word

	PacketTypeShift = 30
	PacketTypeMask  = 0x3

	PacketType0 = 0
	PacketType1 = 1
	PacketType2 = 2
	PacketType3 = 3

	// Type-0 field layout
	Type0BaseIndexMask = 0x7FFF
	Type0WriteOneShift = 15
	Type0CountShift    = 16
	Type0CountMask     = 0x3FFF

	// Type-3 field layout
	Type3OpcodeShift = 8
	Type3OpcodeMask  = 0x7F
	Type3CountShift  = 16
	Type3CountMask   = 0x3FFF
	Type3PredicateMask = 0x1

	// Bad / stuffing headers
	HeaderStuffingZero = 0x00000000
	HeaderStuffingBad  = 0x0BADF00D
	HeaderUninitMemory = 0xCDCDCDCD
)

// Pm4MaxIndirectDepth bounds INDIRECT_BUFFER recursion. spec.md §9 leaves the
// exact bound unspecified beyond "advisable"; 8 matches the teacher's own
// conservative stack-depth choices elsewhere in the pack (coprocessor
// completion caps, etc.) and is generous for any real command stream.
const Pm4MaxIndirectDepth = 8

// =============================================================================
// Type-3 Opcode Set (§6)
// =============================================================================
const (
	OpcodeMeInit uint32 = iota + 0x01
	OpcodeNop
	OpcodeInterrupt
	OpcodeXeSwap
	OpcodeIndirectBuffer
	OpcodeIndirectBufferPfd
	OpcodeWaitRegMem
	OpcodeRegRmw
	OpcodeRegToMem
	OpcodeMemWrite
	OpcodeCondWrite
	OpcodeEventWrite
	OpcodeEventWriteShd
	OpcodeEventWriteExt
	OpcodeEventWriteZpd
	OpcodeDrawIndx
	OpcodeDrawIndx2
	OpcodeSetConstant
	OpcodeSetConstant2
	OpcodeLoadAluConstant
	OpcodeSetShaderConstants
	OpcodeImLoad
	OpcodeImLoadImmediate
	OpcodeInvalidateState
	OpcodeVizQuery
	OpcodeSetBinMaskLo
	OpcodeSetBinMaskHi
	OpcodeSetBinSelectLo
	OpcodeSetBinSelectHi
	OpcodeSetBinMask
	OpcodeSetBinSelect
	OpcodeContextUpdate
	OpcodeWaitForIdle
)

// XeSwapSignature is the fixed 4-byte value that must head an XE_SWAP
// packet's payload before the frontbuffer pointer/width/height triple.
const XeSwapSignature uint32 = 0x00000001

// =============================================================================
// Address Endianness Encoding (§6)
// =============================================================================
type AddressEndianness uint32

const (
	EndianNone AddressEndianness = iota
	Endian8in16
	Endian8in32
	Endian16in32

	AddressEndianMask  = 0x3
	AddressAlignMask   = ^uint32(0x3)
)

// DecodeAddressEndianness splits a guest address into its 4-byte-aligned
// base and the swap mode encoded in its low 2 bits, per §6.
func DecodeAddressEndianness(addr uint32) (aligned uint32, mode AddressEndianness) {
	return addr & AddressAlignMask, AddressEndianness(addr & AddressEndianMask)
}

// =============================================================================
// Register File Layout (C2, §4.2)
// =============================================================================
const (
	// RegisterCount is the fixed size of the register file (~0x5000 slots,
	// each addressable by a 15-bit index per spec.md §3).
	RegisterCount = 0x5000

	RegAluConstantBase  = 0x4000
	RegAluConstantCount = 256

	RegFetchConstantBase  = 0x4100
	RegFetchConstantCount = 192

	RegBoolConstantBase  = 0x4200
	RegBoolConstantCount = 8

	RegLoopConstantBase  = 0x4208
	RegLoopConstantCount = 32

	RegShaderConstantBase  = 0x4300
	RegShaderConstantCount = 512

	RegCPIntAck        = 0x01F2
	RegCoherStatusHost = 0x01D6

	RegScissorTL = 0x0A00
	RegScissorBR = 0x0A01

	RegVGTDrawInitiator   = 0x0762
	RegVGTDmaBase         = 0x0763
	RegVGTDmaSize         = 0x0764
	RegVGTEventInitiator  = 0x0765

	RegPAScVizQuery     = 0x0766
	RegVizQueryStatus0  = 0x0767
	RegVizQueryStatus1  = 0x0768

	RegRBSampleCountAddr = 0x0770
)

// Guest sample-count structure read/written by EVENT_WRITE_ZPD's occlusion
// fake. spec.md names the fields (ZPass_A/B, ZFail_A/B, Total_A/B) but not
// their byte layout; laid out here as six sequential 32-bit words, the
// shape of the Xenos hardware's own D3DQUERY_ZPASS result block.
const (
	zpdZPassAOffset = 0x00
	zpdZPassBOffset = 0x04
	zpdZFailAOffset = 0x08
	zpdZFailBOffset = 0x0C
	zpdTotalAOffset = 0x10
	zpdTotalBOffset = 0x14
	zpdStructSize   = 0x18

	// zpdSentinel is 0xFFFFFEED as it appears once byte-swapped in the
	// guest structure, per spec.md's "sentinel 0xFFFFFEED (byte-swapped)".
	zpdSentinel uint32 = 0xEDFEFFFF
)

// pm4EventWriteExtExtent is the fixed 6-entry screen-extent array
// EVENT_WRITE_EXT reports (left, top, right, bottom, minZ, maxZ). No
// render-target dimensions are tracked by this interpreter, so the extent
// is hard-coded to the widest representable range rather than a real
// texture size.
var pm4EventWriteExtExtent = [6]uint16{0, 0, 0xFFFF, 0xFFFF, 0, 0xFFFF}

// SET_CONSTANT's first payload word encodes {index:11, type:8}; type
// selects which of five named banks the remaining words stream into.
// Matches the Xenos command-processor's own SQ constant-type field values.
const (
	constantTypeALU       = 0
	constantTypeFetch     = 1
	constantTypeBool      = 2
	constantTypeLoop      = 3
	constantTypeRegisters = 4
)

// Event initiator kinds written into RegVGTEventInitiator by VIZ_QUERY.
const (
	EventVizQueryStart = 0x0D
	EventVizQueryEnd   = 0x0E
)

// Draw initiator source-select values (§4.8).
const (
	DrawSourceDMA       = 0
	DrawSourceImmediate = 1
	DrawSourceAutoIndex = 2
	DrawSourceInvalid   = 3
)

// Index format values carried in IndexBufferInfo.
const (
	IndexFormatU16 = 0
	IndexFormatU32 = 1
)
