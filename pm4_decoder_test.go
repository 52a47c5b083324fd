package main

import "testing"

func TestDecodePacketHeaderSentinels(t *testing.T) {
	cases := []struct {
		header uint32
		want   Pm4PacketKind
	}{
		{HeaderStuffingZero, Pm4PacketStuffing},
		{HeaderStuffingBad, Pm4PacketBadHeader},
		{HeaderUninitMemory, Pm4PacketUninitialized},
	}
	for _, c := range cases {
		if got := DecodePacketHeader(c.header).Kind; got != c.want {
			t.Fatalf("header 0x%08X: got kind %v, want %v", c.header, got, c.want)
		}
	}
}

func TestDecodeType0Header(t *testing.T) {
	// Type 0, base index 0x123, count field 4 (5 payload words), write-one clear.
	header := uint32(PacketType0)<<PacketTypeShift | (4 << Type0CountShift) | 0x123
	pkt := DecodePacketHeader(header)
	if pkt.Type != PacketType0 {
		t.Fatalf("type: got %d, want 0", pkt.Type)
	}
	if pkt.BaseIndex != 0x123 {
		t.Fatalf("base index: got 0x%X, want 0x123", pkt.BaseIndex)
	}
	if pkt.Count != 4 {
		t.Fatalf("count: got %d, want 4", pkt.Count)
	}
	if pkt.WriteOne {
		t.Fatal("write-one should be clear")
	}
}

func TestDecodeType0WriteOneBit(t *testing.T) {
	header := uint32(PacketType0)<<PacketTypeShift | (1 << Type0WriteOneShift) | 0x50
	pkt := DecodePacketHeader(header)
	if !pkt.WriteOne {
		t.Fatal("write-one bit should be set")
	}
}

func TestDecodeType3Header(t *testing.T) {
	header := uint32(PacketType3)<<PacketTypeShift | (2 << Type3CountShift) | (OpcodeXeSwap << Type3OpcodeShift) | 0x1
	pkt := DecodePacketHeader(header)
	if pkt.Type != PacketType3 {
		t.Fatalf("type: got %d, want 3", pkt.Type)
	}
	if pkt.Opcode != OpcodeXeSwap {
		t.Fatalf("opcode: got 0x%X, want 0x%X", pkt.Opcode, OpcodeXeSwap)
	}
	if pkt.Count != 2 {
		t.Fatalf("count: got %d, want 2", pkt.Count)
	}
	if !pkt.Predicated {
		t.Fatal("predicate bit should be set")
	}
}

func TestDecodeAddressEndiannessSplitsLowBits(t *testing.T) {
	aligned, mode := DecodeAddressEndianness(0x00001004 | uint32(Endian16in32))
	if aligned != 0x00001004 {
		t.Fatalf("aligned: got 0x%X, want 0x1004", aligned)
	}
	if mode != Endian16in32 {
		t.Fatalf("mode: got %d, want %d", mode, Endian16in32)
	}
}
