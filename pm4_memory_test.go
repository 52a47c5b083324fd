package main

import "testing"

func newTestGuestMemory(size int) (*pm4MachineMemory, []byte) {
	mem := make([]byte, size)
	return &pm4MachineMemory{mem: mem}, mem
}

func TestGuestMemoryReadWriteNoSwap(t *testing.T) {
	gm, _ := newTestGuestMemory(0x100)
	gm.WriteU32(0x10, 0xAABBCCDD)
	if got := gm.ReadU32(0x10); got != 0xAABBCCDD {
		t.Fatalf("got 0x%08X, want 0xAABBCCDD", got)
	}
}

func TestGuestMemoryAddressEncodesEndianness(t *testing.T) {
	gm, raw := newTestGuestMemory(0x100)
	// Address low bits select Endian8in32 but must not affect the
	// physical offset actually written.
	addr := uint32(0x20) | uint32(Endian8in32)
	gm.WriteU32(addr, 0x01020304)

	// 8-in-32 reverses all four bytes before storing.
	want := []byte{0x04, 0x03, 0x02, 0x01}
	got := raw[0x20 : 0x20+4]
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got 0x%02X, want 0x%02X", i, got[i], want[i])
		}
	}
	if val := gm.ReadU32(addr); val != 0x01020304 {
		t.Fatalf("round trip: got 0x%08X, want 0x01020304", val)
	}
}

func TestSwapForModeTable(t *testing.T) {
	cases := []struct {
		mode AddressEndianness
		in   uint32
		want uint32
	}{
		{EndianNone, 0x01020304, 0x01020304},
		{Endian8in16, 0x01020304, 0x02010403},
		{Endian8in32, 0x01020304, 0x04030201},
		{Endian16in32, 0x01020304, 0x03040102},
	}
	for _, c := range cases {
		if got := swapForMode(c.in, c.mode); got != c.want {
			t.Fatalf("mode %d: got 0x%08X, want 0x%08X", c.mode, got, c.want)
		}
	}
}
