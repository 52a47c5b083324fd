package main

import "testing"

type fakeRegHooks struct {
	acked    int
	coherent int
}

func (h *fakeRegHooks) AckInterrupt() { h.acked++ }
func (h *fakeRegHooks) MakeCoherent() { h.coherent++ }

func TestRegisterFileWriteReadRoundTrip(t *testing.T) {
	rf := NewPm4RegisterFile(nil)
	if !rf.Write(0x100, 0xDEADBEEF) {
		t.Fatal("write at valid index failed")
	}
	if got := rf.Read(0x100); got != 0xDEADBEEF {
		t.Fatalf("got 0x%08X, want 0xDEADBEEF", got)
	}
}

func TestRegisterFileOutOfRangeFails(t *testing.T) {
	rf := NewPm4RegisterFile(nil)
	if rf.Write(RegisterCount, 1) {
		t.Fatal("write past RegisterCount should fail")
	}
	if rf.Read(RegisterCount) != 0 {
		t.Fatal("read past RegisterCount should return 0")
	}
}

func TestRegisterFileInterruptAckHook(t *testing.T) {
	hooks := &fakeRegHooks{}
	rf := NewPm4RegisterFile(hooks)
	rf.Write(RegCPIntAck, 1)
	if hooks.acked != 1 {
		t.Fatalf("AckInterrupt called %d times, want 1", hooks.acked)
	}
}

func TestRegisterFileCoherentHookFiresOnRead(t *testing.T) {
	hooks := &fakeRegHooks{}
	rf := NewPm4RegisterFile(hooks)
	rf.Read(RegCoherStatusHost)
	if hooks.coherent != 1 {
		t.Fatalf("MakeCoherent called %d times, want 1", hooks.coherent)
	}
}

func TestRegisterFileWriteOneFromRing(t *testing.T) {
	rf := NewPm4RegisterFile(nil)
	ring := newTestRing(t, []uint32{1, 2, 3}, 0x20)
	rf.WriteOneFromRing(ring, 0x50, 3)
	if got := rf.Read(0x50); got != 3 {
		t.Fatalf("base register after write-one: got %d, want 3 (last value wins)", got)
	}
}

func TestRegisterFileWriteRangeFromRing(t *testing.T) {
	rf := NewPm4RegisterFile(nil)
	ring := newTestRing(t, []uint32{10, 20, 30}, 0x20)
	rf.WriteRangeFromRing(ring, 0x60, 3)
	for i, want := range []uint32{10, 20, 30} {
		if got := rf.Read(0x60 + uint32(i)); got != want {
			t.Fatalf("reg 0x%X: got %d, want %d", 0x60+i, got, want)
		}
	}
}

func TestResolveConstantBank(t *testing.T) {
	rf := NewPm4RegisterFile(nil)
	cases := []struct {
		index uint32
		want  constantBank
	}{
		{RegAluConstantBase, bankALU},
		{RegFetchConstantBase + 1, bankFetch},
		{RegBoolConstantBase, bankBool},
		{RegLoopConstantBase, bankLoop},
		{RegShaderConstantBase, bankShader},
		{0, bankUnknown},
	}
	for _, c := range cases {
		if got := rf.ResolveConstantBank(c.index); got != c.want {
			t.Fatalf("index 0x%X: got %v, want %v", c.index, got, c.want)
		}
	}
}
