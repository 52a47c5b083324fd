// pm4_dispatcher.go - PM4 packet dispatcher for the Intuition Engine GPU command processor

/*
pm4_dispatcher.go - Type-3 Dispatcher (C6)

Routes a decoded packet to its handler. Type-0 writes land directly in the
register file; Type-1/Type-2 are trivial; Type-3 goes through the bin
predicate gate (skip the packet's payload entirely when predication says
not to run it) before the opcode switch in pm4_handlers.go runs. Modelled
on video_antic.go's display-list dispatch loop (decode one entry, act on
it, advance) and coprocessor_manager.go's dispatchCmd opcode switch.
*/

package main

import "log"

// dispatchPacket routes pkt to the right handling path and reports whether
// it completed successfully. For a Type-3 packet the ring cursor is always
// left exactly Count+1 payload words past its header, even when the packet
// is skipped by predication, so ring bookkeeping invariant 1 holds
// regardless of predicate outcome.
func (p *Pm4CommandProcessor) dispatchPacket(pkt Pm4Packet) bool {
	switch pkt.Kind {
	case Pm4PacketStuffing:
		return true
	case Pm4PacketBadHeader:
		log.Printf("pm4: bad packet header marker encountered")
		return true
	}

	switch pkt.Type {
	case PacketType0:
		if pkt.WriteOne {
			return p.regs.WriteOneFromRing(p.ring, pkt.BaseIndex, pkt.Count+1)
		}
		return p.regs.WriteRangeFromRing(p.ring, pkt.BaseIndex, pkt.Count+1)

	case PacketType1:
		// Two register indices packed into the header, one value each
		// read from the payload; reuses the Type-0 writer one index at a
		// time since there's no bulk-count field to drive a range write.
		reg0 := pkt.BaseIndex & 0x7FF
		reg1 := (pkt.BaseIndex >> 11) & 0x7FF
		ok := p.regs.Write(reg0, p.ring.ReadU32Swapped())
		ok = p.regs.Write(reg1, p.ring.ReadU32Swapped()) && ok
		return ok

	case PacketType2:
		return true

	case PacketType3:
		return p.dispatchType3(pkt)
	}
	return false
}

// dispatchType3 checks the declared payload against what the ring actually
// holds, applies the bin predicate gate, emits trace start/end events, and
// calls the opcode handler.
func (p *Pm4CommandProcessor) dispatchType3(pkt Pm4Packet) bool {
	// INDIRECT_BUFFER/_PFD always declare a payload count of 2 (the
	// pointer and size words) regardless of how large the buffer they
	// point to is — the recursion itself consumes the indirect buffer's
	// own packets once the handler pushes a new ring frame.
	payloadWords := pkt.Count + 1

	if p.ring.ReadCount() < payloadWords*WordSize {
		log.Printf("pm4: opcode 0x%02X declares %d payload words but only %d bytes remain, aborting stream", pkt.Opcode, payloadWords, p.ring.ReadCount())
		return false
	}

	p.trace.StartPacket(p.indirectDepth, pkt.Opcode, pkt.Count, pkt.Predicated)

	if pkt.Predicated {
		anyPass := p.evaluatePredicate()
		if !anyPass || pkt.Opcode == OpcodeXeSwap {
			p.ring.Advance(payloadWords * WordSize)
			p.trace.EndPacket(true)
			return true
		}
	}

	startOffset := p.ring.ReadOffset()
	ok := p.runOpcodeHandler(pkt)

	// Post-condition: regardless of what the handler itself consumed
	// (INDIRECT_BUFFER recurses and may leave the cursor anywhere inside
	// the indirect frame before restoring it), the ring must end up
	// exactly payloadWords past where this packet's payload started.
	consumed := (p.ring.ReadOffset() - startOffset + ringCapacityOf(p.ring)) % ringCapacityOf(p.ring)
	if consumed != payloadWords*WordSize {
		p.ring.Restore(ringSnapshotAt(p.ring, startOffset))
		p.ring.Advance(payloadWords * WordSize)
	}

	p.trace.EndPacket(ok)
	return ok
}

// evaluatePredicate implements the bin_select & bin_mask gate: a predicated
// packet's any_pass is true only if at least one bit survives the AND. The
// caller additionally skips XE_SWAP unconditionally when predicated — a
// predicated swap would otherwise race ahead of the bins it was meant to
// wait for, so it is always gated off rather than exempted.
func (p *Pm4CommandProcessor) evaluatePredicate() bool {
	return p.binSelect&p.binMask != 0
}

// ringCapacityOf and ringSnapshotAt are small helpers kept here rather than
// exported from Pm4RingReader, since restoring to an arbitrary offset
// (rather than a previously captured Snapshot) is specific to the
// dispatcher's post-condition recovery path.
func ringCapacityOf(r *Pm4RingReader) uint32 {
	return r.capacity
}

func ringSnapshotAt(r *Pm4RingReader, offset uint32) Pm4RingReader {
	snap := r.Snapshot()
	snap.readOffset = offset
	return snap
}
