package main

import "testing"

func TestEvaluateCompareFuncTable(t *testing.T) {
	cases := []struct {
		fn        uint32
		lhs, rhs  uint32
		want      bool
	}{
		{0, 1, 1, false}, // never
		{1, 1, 2, true},  // less-than
		{1, 2, 1, false},
		{2, 1, 1, true}, // less-equal
		{2, 2, 1, false},
		{3, 5, 5, true}, // equal
		{3, 5, 6, false},
		{4, 5, 6, true}, // not-equal
		{4, 5, 5, false},
		{5, 2, 1, true}, // greater-equal
		{5, 1, 2, false},
		{6, 2, 1, true}, // greater-than
		{6, 1, 1, false},
		{7, 0, 0xFFFFFFFF, true}, // always
	}
	for _, c := range cases {
		if got := evaluateCompareFunc(c.fn, c.lhs, c.rhs); got != c.want {
			t.Fatalf("fn=%d lhs=%d rhs=%d: got %v, want %v", c.fn, c.lhs, c.rhs, got, c.want)
		}
	}
}

func TestHandleWaitRegMemRegisterSpaceAlwaysTrue(t *testing.T) {
	proc, backend, _ := newTestProcessor([]uint32{
		packType3(OpcodeWaitRegMem, 3, false), 0x7, 0x50, 0, 0,
	}, 0x200)
	proc.Run()
	if backend.waitsBegun != 1 || backend.waitsEnded != 1 {
		t.Fatalf("wait hooks: begun=%d ended=%d, want 1/1", backend.waitsBegun, backend.waitsEnded)
	}
}

func TestHandleWaitRegMemMemorySpacePolling(t *testing.T) {
	proc, _, mem := newTestProcessor([]uint32{
		packType3(OpcodeWaitRegMem, 3, false), 0x13, 0x100, 0x2A, 0xFFFFFFFF,
	}, 0x200)
	mem.WriteU32(0x100, 0x2A)
	proc.Run()
	if proc.ring.ReadCount() != 0 {
		t.Fatal("WAIT_REG_MEM with satisfied condition should let the stream finish")
	}
}

func TestHandleWaitRegMemStopsOnCooperativeCancellation(t *testing.T) {
	proc, _, _ := newTestProcessor([]uint32{
		packType3(OpcodeWaitRegMem, 3, false), 0x3, 0x999, 0, 0xFFFFFFFF,
	}, 0x200)
	proc.Stop()
	ok := proc.dispatchPacket(DecodePacketHeader(proc.ring.ReadU32Swapped()))
	if ok {
		t.Fatal("WAIT_REG_MEM must report failure once the worker is stopped")
	}
	if proc.IsRunning() {
		t.Fatal("processor should remain stopped")
	}
}

func TestHandleEventWriteSkipsExtraPayloadWords(t *testing.T) {
	proc, backend, _ := newTestProcessor([]uint32{
		packType3(OpcodeEventWrite, 2, false), EventVizQueryStart, 0xDEAD, 0xBEEF,
		packType3(OpcodeInterrupt, 0, false), 0x1,
	}, 0x200)
	proc.Run()
	if got := proc.regs.Read(RegVGTEventInitiator); got != EventVizQueryStart {
		t.Fatalf("event initiator: got 0x%X, want 0x%X", got, EventVizQueryStart)
	}
	if backend.interrupts != 1 {
		t.Fatal("extra EVENT_WRITE payload words must not desync the next packet")
	}
}

func TestHandleContextUpdateNeverFails(t *testing.T) {
	proc, backend, _ := newTestProcessor([]uint32{
		packType3(OpcodeContextUpdate, 0, false), 0xFFFFFFFF,
		packType3(OpcodeInterrupt, 0, false), 0x1,
	}, 0x200)
	proc.Run()
	if backend.interrupts != 1 {
		t.Fatal("non-zero CONTEXT_UPDATE payload must still allow the stream to continue")
	}
}

func TestHandleEventWriteZpdOcclusionFake(t *testing.T) {
	const addr = 0x200
	proc, _, mem := newTestProcessor([]uint32{
		packType3(OpcodeEventWriteZpd, 1, false), EventVizQueryEnd, 0,
	}, 0x300)
	proc.regs.Write(RegRBSampleCountAddr, addr)
	mem.WriteU32(addr+zpdZPassAOffset, zpdSentinel)
	proc.config.QueryOcclusionFakeSampleCount = 42
	proc.Run()
	if got := mem.ReadU32(addr + zpdZPassAOffset); got != 42 {
		t.Fatalf("ZPass_A: got %d, want 42", got)
	}
	if got := mem.ReadU32(addr + zpdTotalAOffset); got != 42 {
		t.Fatalf("Total_A: got %d, want 42", got)
	}
	if got := mem.ReadU32(addr + zpdZPassBOffset); got != 0 {
		t.Fatalf("ZPass_B should have been zeroed: got %d", got)
	}
}

func TestHandleEventWriteZpdNoSentinelLeavesStructureUntouched(t *testing.T) {
	const addr = 0x200
	proc, _, mem := newTestProcessor([]uint32{
		packType3(OpcodeEventWriteZpd, 1, false), EventVizQueryEnd, 0,
	}, 0x300)
	proc.regs.Write(RegRBSampleCountAddr, addr)
	mem.WriteU32(addr+zpdZPassAOffset, 0x1234)
	proc.Run()
	if got := mem.ReadU32(addr + zpdZPassAOffset); got != 0x1234 {
		t.Fatalf("structure without the sentinel must be left untouched: got 0x%X", got)
	}
}

func TestHandleDrawIndxCulledDuringVizQuery(t *testing.T) {
	proc, backend, _ := newTestProcessor([]uint32{
		packType3(OpcodeVizQuery, 0, false), 0, // id=0, end=0 (begin)
		packType3(OpcodeDrawIndx, 0, false), 0,
	}, 0x200)
	proc.Run()
	if len(backend.draws) != 0 {
		t.Fatal("draw issued during an active viz query should be culled, not forwarded")
	}
}

func TestHandleVizQueryBeginSetsEventInitiatorAndActive(t *testing.T) {
	proc, _, _ := newTestProcessor([]uint32{
		packType3(OpcodeVizQuery, 0, false), 0,
	}, 0x200)
	proc.Run()
	if !proc.vizQueryActive {
		t.Fatal("VIZ_QUERY begin must set vizQueryActive")
	}
	if got := proc.regs.Read(RegVGTEventInitiator); got != EventVizQueryStart {
		t.Fatalf("event initiator: got 0x%X, want 0x%X", got, EventVizQueryStart)
	}
}

func TestHandleVizQueryEndSetsStatusBit(t *testing.T) {
	const id = 5
	proc, _, _ := newTestProcessor([]uint32{
		packType3(OpcodeVizQuery, 0, false), id | 0x40,
	}, 0x200)
	proc.vizQueryActive = true
	proc.Run()
	if proc.vizQueryActive {
		t.Fatal("VIZ_QUERY end must clear vizQueryActive")
	}
	if got := proc.regs.Read(RegVizQueryStatus0); got&(1<<id) == 0 {
		t.Fatalf("status0 bit %d not set: got 0x%X", id, got)
	}
}

func TestHandleVizQueryEndHighIdSetsStatus1(t *testing.T) {
	const id = 40
	proc, _, _ := newTestProcessor([]uint32{
		packType3(OpcodeVizQuery, 0, false), id | 0x40,
	}, 0x200)
	proc.Run()
	if got := proc.regs.Read(RegVizQueryStatus1); got&(1<<(id-32)) == 0 {
		t.Fatalf("status1 bit %d not set: got 0x%X", id-32, got)
	}
}

func TestHandleIndirectBufferRecursesAndRestoresRing(t *testing.T) {
	const outerCap = 0x200
	const innerBase = 0x100
	const innerSizeDwords = 5 // header + signature + addr + width + height

	proc, backend, mem := newTestProcessor([]uint32{
		packType3(OpcodeIndirectBuffer, 1, false), innerBase, innerSizeDwords,
		packType3(OpcodeInterrupt, 0, false), 0x1,
	}, outerCap)

	innerPacket := packType3(OpcodeXeSwap, 3, false)
	mem.WriteU32(innerBase+0, innerPacket)
	mem.WriteU32(innerBase+4, XeSwapSignature)
	mem.WriteU32(innerBase+8, 0x9000)
	mem.WriteU32(innerBase+12, 320)
	mem.WriteU32(innerBase+16, 240)

	outerRing := proc.ring
	proc.Run()

	if len(backend.swaps) != 1 {
		t.Fatalf("indirect buffer's XE_SWAP should have executed, got %d swaps", len(backend.swaps))
	}
	if backend.interrupts != 1 {
		t.Fatal("outer stream must resume after the indirect buffer completes")
	}
	if proc.ring != outerRing {
		t.Fatal("ring must be restored to the outer frame after INDIRECT_BUFFER returns")
	}
}

func TestHandleIndirectBufferDepthCap(t *testing.T) {
	proc, _, _ := newTestProcessor([]uint32{
		packType3(OpcodeIndirectBuffer, 1, false), 0x100, 1,
	}, 0x200)
	proc.indirectDepth = Pm4MaxIndirectDepth
	ok := proc.runOpcodeHandler(Pm4Packet{Opcode: OpcodeIndirectBuffer, Count: 1})
	if ok {
		t.Fatal("indirect buffer recursion must fail once the depth cap is reached")
	}
}

func TestHandleImLoadImmediateStagesInlineWords(t *testing.T) {
	proc, backend, _ := newTestProcessor([]uint32{
		packType3(OpcodeImLoadImmediate, 3, false), 0, 2, 0x11111111, 0x22222222,
	}, 0x02000000)
	proc.Run()
	if len(backend.shadersLoaded) != 1 {
		t.Fatalf("got %d shader loads, want 1", len(backend.shadersLoaded))
	}
	load := backend.shadersLoaded[0]
	if load.addr != pm4ShaderStagingAddr || load.sizeDwords != 2 {
		t.Fatalf("staged load: got %+v", load)
	}
}

func TestHandleSetConstantWritesAluBank(t *testing.T) {
	proc, _, _ := newTestProcessor([]uint32{
		packType3(OpcodeSetConstant, 2, false), 0, 0x100, 0x200,
	}, 0x200)
	proc.Run()
	if got := proc.regs.Read(RegAluConstantBase); got != 0x100 {
		t.Fatalf("alu[0]: got 0x%X, want 0x100", got)
	}
	if got := proc.regs.Read(RegAluConstantBase + 1); got != 0x200 {
		t.Fatalf("alu[1]: got 0x%X, want 0x200", got)
	}
}

func TestHandleSetConstantSelectsBankByType(t *testing.T) {
	cases := []struct {
		name string
		typ  uint32
		base uint32
	}{
		{"fetch", constantTypeFetch, RegFetchConstantBase},
		{"bool", constantTypeBool, RegBoolConstantBase},
		{"loop", constantTypeLoop, RegLoopConstantBase},
	}
	for _, c := range cases {
		header := c.typ << 11 // index 0
		proc, _, _ := newTestProcessor([]uint32{
			packType3(OpcodeSetConstant, 1, false), header, 0xABCD,
		}, 0x200)
		proc.Run()
		if got := proc.regs.Read(c.base); got != 0xABCD {
			t.Fatalf("%s bank: got 0x%X, want 0xABCD", c.name, got)
		}
	}
}

func TestHandleSetConstant2UsesGenericRegisterBank(t *testing.T) {
	proc, _, _ := newTestProcessor([]uint32{
		packType3(OpcodeSetConstant2, 1, false), 3, 0x999,
	}, 0x200)
	proc.Run()
	if got := proc.regs.Read(RegShaderConstantBase + 3); got != 0x999 {
		t.Fatalf("shader[3]: got 0x%X, want 0x999", got)
	}
}
