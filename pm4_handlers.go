// pm4_handlers.go - PM4 Type-3 opcode handlers for the Intuition Engine GPU command processor

/*
pm4_handlers.go - Opcode Handlers (C7)

One function per Type-3 opcode in the set pm4_constants.go declares. Each
handler reads exactly the payload words it needs (the dispatcher's
post-condition check in pm4_dispatcher.go corrects the ring cursor if a
handler under- or over-reads, but handlers still aim to consume precisely
what the opcode defines, the way coprocessor_manager.go's cmdEnqueue/
cmdPoll/cmdWait each know exactly how many shadow registers they touch).
WAIT_REG_MEM's polling loop follows the same stop/done cooperative
cancellation shape as CoprocWorker; SET_CONSTANT's bank dispatch follows
video_chip.go's HandleWrite address-range switch.
*/

package main

import (
	"log"
	"time"
)

// pm4ShaderStagingAddr is scratch guest memory used to stage
// IM_LOAD_IMMEDIATE's inline microcode before handing it to the backend,
// which only accepts shader sources by guest address (matching how a real
// command processor would DMA the inline words out before translation).
const pm4ShaderStagingAddr uint32 = 0x01FF0000

// runOpcodeHandler is the Type-3 opcode switch.
func (p *Pm4CommandProcessor) runOpcodeHandler(pkt Pm4Packet) bool {
	switch pkt.Opcode {
	case OpcodeMeInit:
		return true // payload is microengine config this interpreter doesn't model
	case OpcodeNop:
		p.ring.Advance((pkt.Count + 1) * WordSize)
		return true
	case OpcodeInterrupt:
		return p.handleInterrupt()
	case OpcodeXeSwap:
		return p.handleXeSwap()
	case OpcodeIndirectBuffer, OpcodeIndirectBufferPfd:
		return p.handleIndirectBuffer()
	case OpcodeWaitRegMem:
		return p.handleWaitRegMem()
	case OpcodeRegRmw:
		return p.handleRegRmw()
	case OpcodeRegToMem:
		return p.handleRegToMem()
	case OpcodeMemWrite:
		return p.handleMemWrite(pkt)
	case OpcodeCondWrite:
		return p.handleCondWrite()
	case OpcodeEventWrite:
		return p.handleEventWrite(pkt)
	case OpcodeEventWriteShd:
		return p.handleEventWriteShd()
	case OpcodeEventWriteExt:
		return p.handleEventWriteExt()
	case OpcodeEventWriteZpd:
		return p.handleEventWriteZpd()
	case OpcodeDrawIndx, OpcodeDrawIndx2:
		return p.handleDrawIndx()
	case OpcodeSetConstant:
		return p.handleSetConstant(pkt)
	case OpcodeSetConstant2:
		return p.handleSetConstant2(pkt)
	case OpcodeLoadAluConstant:
		return p.handleLoadAluConstant()
	case OpcodeSetShaderConstants:
		return p.handleSetShaderConstants(pkt)
	case OpcodeImLoad:
		return p.handleImLoad()
	case OpcodeImLoadImmediate:
		return p.handleImLoadImmediate()
	case OpcodeInvalidateState:
		p.ring.Advance((pkt.Count + 1) * WordSize)
		return true
	case OpcodeVizQuery:
		return p.handleVizQuery()
	case OpcodeSetBinMaskLo:
		return p.handleSetBinHalf(&p.binMask, false)
	case OpcodeSetBinMaskHi:
		return p.handleSetBinHalf(&p.binMask, true)
	case OpcodeSetBinSelectLo:
		return p.handleSetBinHalf(&p.binSelect, false)
	case OpcodeSetBinSelectHi:
		return p.handleSetBinHalf(&p.binSelect, true)
	case OpcodeSetBinMask:
		return p.handleSetBinFull(&p.binMask)
	case OpcodeSetBinSelect:
		return p.handleSetBinFull(&p.binSelect)
	case OpcodeContextUpdate:
		return p.handleContextUpdate()
	case OpcodeWaitForIdle:
		value := p.ring.ReadU32Swapped()
		log.Printf("pm4: WAIT_FOR_IDLE payload=0x%08X", value)
		return true
	default:
		log.Printf("pm4: unknown Type-3 opcode 0x%02X, skipping %d payload words", pkt.Opcode, pkt.Count+1)
		p.ring.Advance((pkt.Count + 1) * WordSize)
		return false
	}
}

// handleInterrupt reads cpu_mask and fans the interrupt out once per set
// bit (0..5), each reported as a distinct CPU target.
func (p *Pm4CommandProcessor) handleInterrupt() bool {
	cpuMask := p.ring.ReadU32Swapped()
	for cpu := uint32(0); cpu < 6; cpu++ {
		if cpuMask&(1<<cpu) != 0 {
			p.backend.DispatchInterruptCallback(1, cpu)
		}
	}
	return true
}

// handleXeSwap presents the frontbuffer, advances the frame counter, and
// drives single-frame trace capture (§4.6 step 7): a pending trace request
// is installed on this swap; a trace already running in single-frame mode
// is flushed and closed on the swap after that.
func (p *Pm4CommandProcessor) handleXeSwap() bool {
	signature := p.ring.ReadU32Swapped()
	addr := p.ring.ReadU32Swapped()
	width := p.ring.ReadU32Swapped()
	height := p.ring.ReadU32Swapped()
	if signature != XeSwapSignature {
		log.Printf("pm4: XE_SWAP with unexpected signature 0x%08X", signature)
	}
	if err := p.backend.IssueSwap(addr, width, height); err != nil {
		log.Printf("pm4: backend swap failed: %v", err)
		return false
	}
	p.frameCounter++

	if p.pendingTrace != nil {
		p.trace = p.pendingTrace
		p.pendingTrace = nil
		p.traceSingleFrame = true
	} else {
		p.trace.Flush()
		if p.traceSingleFrame {
			p.trace.Close()
			p.trace = NewPm4NullTrace()
			p.traceSingleFrame = false
		}
	}
	return true
}

// handleIndirectBuffer pushes a new ring frame over the guest buffer named
// by the packet's pointer/size payload, runs the outer decode loop against
// it, then restores the original frame. Depth-capped at
// Pm4MaxIndirectDepth (§9, §5 "exception-safe ring-reader save/restore").
func (p *Pm4CommandProcessor) handleIndirectBuffer() bool {
	addr := p.ring.ReadU32Swapped()
	sizeDwords := p.ring.ReadU32Swapped()

	if p.indirectDepth >= Pm4MaxIndirectDepth {
		log.Printf("pm4: indirect buffer recursion depth %d exceeded", Pm4MaxIndirectDepth)
		return false
	}

	aligned, _ := DecodeAddressEndianness(addr)
	outer := p.ring

	// The sub-ring's capacity is padded one word past the declared buffer
	// size so a fully-populated buffer (writeOffset == byte length) never
	// collapses onto offset 0 the way ReadCount's modulo arithmetic would
	// if capacity exactly equalled the content length, which would make
	// every indirect buffer decode as empty.
	innerLen := sizeDwords * WordSize
	inner := NewPm4RingReader(outer.mem, aligned, innerLen+WordSize)
	inner.SetWriteOffset(innerLen)

	p.ring = inner
	p.indirectDepth++
	p.Run()
	p.indirectDepth--
	p.ring = outer
	return true
}

// evaluateCompareFunc implements the 8-way WAIT_REG_MEM/COND_WRITE comparison
// table: 0 never, 1 less-than, 2 less-equal, 3 equal, 4 not-equal,
// 5 greater-equal, 6 greater-than, 7 always.
func evaluateCompareFunc(fn uint32, lhs, rhs uint32) bool {
	switch fn & 0x7 {
	case 0:
		return false
	case 1:
		return lhs < rhs
	case 2:
		return lhs <= rhs
	case 3:
		return lhs == rhs
	case 4:
		return lhs != rhs
	case 5:
		return lhs >= rhs
	case 6:
		return lhs > rhs
	default:
		return true
	}
}

// handleWaitRegMem polls a register or memory location until a comparison
// against a masked reference value is satisfied, cooperatively cancellable
// via the processor's running flag (§5).
func (p *Pm4CommandProcessor) handleWaitRegMem() bool {
	waitInfo := p.ring.ReadU32Swapped()
	pollAddr := p.ring.ReadU32Swapped()
	refValue := p.ring.ReadU32Swapped()
	mask := p.ring.ReadU32Swapped()

	pollMemSpace := waitInfo&0x10 != 0
	fn := waitInfo

	p.backend.PrepareForWait()
	defer p.backend.ReturnFromWait()

	for p.IsRunning() {
		var observed uint32
		if pollMemSpace {
			aligned, _ := DecodeAddressEndianness(pollAddr)
			observed = p.mem.ReadU32(aligned)
		} else {
			observed = p.regs.Read(pollAddr)
		}
		if evaluateCompareFunc(fn, observed&mask, refValue&mask) {
			return true
		}
		time.Sleep(time.Microsecond)
	}
	return false
}

// handleRegRmw implements value = reg[info&0x1FFF]; the AND/OR operands are
// themselves register-indirect when bits 31/30 of info are set, immediate
// otherwise.
func (p *Pm4CommandProcessor) handleRegRmw() bool {
	info := p.ring.ReadU32Swapped()
	andWord := p.ring.ReadU32Swapped()
	orWord := p.ring.ReadU32Swapped()

	regIndex := info & 0x1FFF

	andOperand := andWord
	if info&0x80000000 != 0 {
		andOperand = p.regs.Read(andWord & 0x1FFF)
	}
	orOperand := orWord
	if info&0x40000000 != 0 {
		orOperand = p.regs.Read(orWord & 0x1FFF)
	}

	value := (p.regs.Read(regIndex) & andOperand) | orOperand
	return p.regs.Write(regIndex, value)
}

func (p *Pm4CommandProcessor) handleRegToMem() bool {
	regAddr := p.ring.ReadU32Swapped()
	destAddr := p.ring.ReadU32Swapped()
	p.mem.WriteU32(destAddr, p.regs.Read(regAddr))
	return true
}

// handleMemWrite treats the first payload word as a base address and
// stores each remaining word at successive 4-byte offsets from it, each
// swapped per the base address's own endianness bits.
func (p *Pm4CommandProcessor) handleMemWrite(pkt Pm4Packet) bool {
	addr := p.ring.ReadU32Swapped()
	for i := uint32(0); i < pkt.Count; i++ {
		p.mem.WriteU32(addr+i*WordSize, p.ring.ReadU32Swapped())
	}
	return true
}

func (p *Pm4CommandProcessor) handleCondWrite() bool {
	waitInfo := p.ring.ReadU32Swapped()
	pollAddr := p.ring.ReadU32Swapped()
	refValue := p.ring.ReadU32Swapped()
	mask := p.ring.ReadU32Swapped()
	writeAddr := p.ring.ReadU32Swapped()
	writeValue := p.ring.ReadU32Swapped()

	var observed uint32
	if waitInfo&0x10 != 0 {
		aligned, _ := DecodeAddressEndianness(pollAddr)
		observed = p.mem.ReadU32(aligned)
	} else {
		observed = p.regs.Read(pollAddr)
	}
	if evaluateCompareFunc(waitInfo, observed&mask, refValue&mask) {
		p.mem.WriteU32(writeAddr, writeValue)
	}
	return true
}

// handleEventWrite implements the preserved Open Question behaviour:
// count > 1 is logged and the extra payload words are skipped rather than
// interpreted, since their meaning is unconfirmed.
func (p *Pm4CommandProcessor) handleEventWrite(pkt Pm4Packet) bool {
	eventType := p.ring.ReadU32Swapped()
	p.regs.Write(RegVGTEventInitiator, eventType)
	if pkt.Count > 0 {
		log.Printf("pm4: EVENT_WRITE with %d extra payload words, skipping", pkt.Count)
		for i := uint32(0); i < pkt.Count; i++ {
			p.ring.ReadU32Swapped()
		}
	}
	return true
}

func (p *Pm4CommandProcessor) handleEventWriteShd() bool {
	eventType := p.ring.ReadU32Swapped()
	addr := p.ring.ReadU32Swapped()
	value := p.ring.ReadU32Swapped()
	p.regs.Write(RegVGTEventInitiator, eventType)
	p.mem.WriteU32(addr, value)
	return true
}

// handleEventWriteExt writes the fixed 6-entry screen-extent array at the
// guest address, forcing k8in16 endianness regardless of what the
// address's own low bits encode.
func (p *Pm4CommandProcessor) handleEventWriteExt() bool {
	eventType := p.ring.ReadU32Swapped()
	addr := p.ring.ReadU32Swapped()
	p.regs.Write(RegVGTEventInitiator, eventType)

	aligned, _ := DecodeAddressEndianness(addr)
	for i := 0; i < len(pm4EventWriteExtExtent); i += 2 {
		raw := uint32(pm4EventWriteExtExtent[i])<<16 | uint32(pm4EventWriteExtExtent[i+1])
		p.mem.WriteU32(aligned+uint32(i)*2, swapForMode(raw, Endian8in16))
	}
	return true
}

// handleEventWriteZpd fakes an occlusion query: if the guest sample-count
// structure at RB_SAMPLE_COUNT_ADDR carries the byte-swapped sentinel in
// either ZPass_{A,B} or ZFail_{A,B}, the whole structure is zeroed and the
// configured fake sample count is written into ZPass_A and Total_A.
func (p *Pm4CommandProcessor) handleEventWriteZpd() bool {
	eventType := p.ring.ReadU32Swapped()
	p.ring.ReadU32Swapped() // reserved/unused second payload word
	p.regs.Write(RegVGTEventInitiator, eventType)

	base := p.regs.Read(RegRBSampleCountAddr)
	aligned, _ := DecodeAddressEndianness(base)

	sentinelPresent := p.mem.ReadU32(aligned+zpdZPassAOffset) == zpdSentinel ||
		p.mem.ReadU32(aligned+zpdZPassBOffset) == zpdSentinel ||
		p.mem.ReadU32(aligned+zpdZFailAOffset) == zpdSentinel ||
		p.mem.ReadU32(aligned+zpdZFailBOffset) == zpdSentinel
	if !sentinelPresent {
		return true
	}

	for off := uint32(0); off < zpdStructSize; off += WordSize {
		p.mem.WriteU32(aligned+off, 0)
	}
	p.mem.WriteU32(aligned+zpdZPassAOffset, p.config.QueryOcclusionFakeSampleCount)
	p.mem.WriteU32(aligned+zpdTotalAOffset, p.config.QueryOcclusionFakeSampleCount)
	return true
}

func (p *Pm4CommandProcessor) handleDrawIndx() bool {
	drawInitiator := p.regs.Read(RegVGTDrawInitiator)
	source := int(drawInitiator & 0x3)
	return p.submitDraw(source)
}

// constantBankBase maps a SET_CONSTANT type field to the register bank its
// index is relative to; an unrecognized type falls back to the generic
// shader constant bank.
func constantBankBase(constantType uint32) uint32 {
	switch constantType {
	case constantTypeALU:
		return RegAluConstantBase
	case constantTypeFetch:
		return RegFetchConstantBase
	case constantTypeBool:
		return RegBoolConstantBase
	case constantTypeLoop:
		return RegLoopConstantBase
	case constantTypeRegisters:
		return RegShaderConstantBase
	default:
		return RegShaderConstantBase
	}
}

// handleSetConstant decodes the first payload word as {index:11, type:8}
// and streams the remaining words into the bank the type selects.
func (p *Pm4CommandProcessor) handleSetConstant(pkt Pm4Packet) bool {
	header := p.ring.ReadU32Swapped()
	index := header & 0x7FF
	constantType := (header >> 11) & 0xFF
	baseIndex := constantBankBase(constantType) + index
	return p.regs.WriteRangeFromRing(p.ring, baseIndex, pkt.Count)
}

// handleSetConstant2 is SET_CONSTANT's wide-index sibling: a 16-bit index
// into the generic shader constant bank, same sequential-range shape.
func (p *Pm4CommandProcessor) handleSetConstant2(pkt Pm4Packet) bool {
	header := p.ring.ReadU32Swapped()
	index := header & 0xFFFF
	baseIndex := RegShaderConstantBase + index
	return p.regs.WriteRangeFromRing(p.ring, baseIndex, pkt.Count)
}

// handleLoadAluConstant loads constant data from guest memory (rather than
// inline ring data) into the ALU constant bank.
func (p *Pm4CommandProcessor) handleLoadAluConstant() bool {
	addr := p.ring.ReadU32Swapped()
	offset := p.ring.ReadU32Swapped()
	count := p.ring.ReadU32Swapped()
	aligned, _ := DecodeAddressEndianness(addr)
	ok := true
	for i := uint32(0); i < count; i++ {
		value := p.mem.ReadU32(aligned + i*WordSize)
		if !p.regs.Write(RegAluConstantBase+offset+i, value) {
			ok = false
		}
	}
	return ok
}

func (p *Pm4CommandProcessor) handleSetShaderConstants(pkt Pm4Packet) bool {
	baseIndex := p.ring.ReadU32Swapped()
	return p.regs.WriteRangeFromRing(p.ring, baseIndex, pkt.Count)
}

func (p *Pm4CommandProcessor) handleImLoad() bool {
	kindWord := p.ring.ReadU32Swapped()
	addr := p.ring.ReadU32Swapped()
	sizeDwords := p.ring.ReadU32Swapped()
	kind := Pm4ShaderVertex
	if kindWord != 0 {
		kind = Pm4ShaderPixel
	}
	aligned, _ := DecodeAddressEndianness(addr)
	if _, err := p.backend.LoadShader(kind, aligned, sizeDwords); err != nil {
		log.Printf("pm4: shader load failed: %v", err)
		return false
	}
	return true
}

// handleImLoadImmediate stages inline shader microcode into scratch guest
// memory before handing it to the backend, since the backend contract only
// accepts shaders by guest address.
func (p *Pm4CommandProcessor) handleImLoadImmediate() bool {
	kindWord := p.ring.ReadU32Swapped()
	sizeDwords := p.ring.ReadU32Swapped()
	kind := Pm4ShaderVertex
	if kindWord != 0 {
		kind = Pm4ShaderPixel
	}
	for i := uint32(0); i < sizeDwords; i++ {
		p.mem.WriteU32(pm4ShaderStagingAddr+i*WordSize, p.ring.ReadU32Swapped())
	}
	if _, err := p.backend.LoadShader(kind, pm4ShaderStagingAddr, sizeDwords); err != nil {
		log.Printf("pm4: immediate shader load failed: %v", err)
		return false
	}
	return true
}

// handleVizQuery decodes {id:6, end:1}: a begin (end==0) opens the
// occlusion query and records a VIZQUERY_START event; an end closes it,
// records VIZQUERY_END, and sets id's bit in the visibility status regs.
func (p *Pm4CommandProcessor) handleVizQuery() bool {
	state := p.ring.ReadU32Swapped()
	id := state & 0x3F
	end := state&0x40 != 0

	if !end {
		p.regs.Write(RegVGTEventInitiator, EventVizQueryStart)
		p.vizQueryActive = true
		return true
	}

	p.regs.Write(RegVGTEventInitiator, EventVizQueryEnd)
	p.vizQueryActive = false
	if id < 32 {
		p.regs.Write(RegVizQueryStatus0, p.regs.Read(RegVizQueryStatus0)|(1<<id))
	} else {
		p.regs.Write(RegVizQueryStatus1, p.regs.Read(RegVizQueryStatus1)|(1<<(id-32)))
	}
	return true
}

func (p *Pm4CommandProcessor) handleSetBinHalf(target *uint64, high bool) bool {
	value := uint64(p.ring.ReadU32Swapped())
	if high {
		*target = (*target & 0x00000000FFFFFFFF) | (value << 32)
	} else {
		*target = (*target & 0xFFFFFFFF00000000) | value
	}
	return true
}

// handleSetBinFull reads the payload in {hi, lo} order, per the full
// 64-bit SET_BIN_MASK/SET_BIN_SELECT wire shape.
func (p *Pm4CommandProcessor) handleSetBinFull(target *uint64) bool {
	hi := uint64(p.ring.ReadU32Swapped())
	lo := uint64(p.ring.ReadU32Swapped())
	*target = lo | (hi << 32)
	return true
}

// handleContextUpdate implements the preserved Open Question behaviour: a
// non-zero payload is logged but does not fail the packet, since hardware
// behaviour on violation is undocumented.
func (p *Pm4CommandProcessor) handleContextUpdate() bool {
	value := p.ring.ReadU32Swapped()
	if value != 0 {
		log.Printf("pm4: CONTEXT_UPDATE with unexpected non-zero payload 0x%08X", value)
	}
	return true
}
