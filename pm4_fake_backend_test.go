package main

import "encoding/binary"

// fakeBackend is a Pm4Backend recording every call it receives, used by the
// dispatcher/handler/integration tests in place of Pm4BackendAdapter so
// assertions don't depend on a concrete rendering stack.
type fakeBackend struct {
	swaps         []fakeSwap
	draws         []Pm4DrawRequest
	shadersLoaded []fakeShaderLoad
	interrupts    int
	interruptCalls []interruptCall
	coherentCalls int
	waitsBegun    int
	waitsEnded    int
	nextHandle    Pm4ShaderHandle
	failSwap      bool
	failDraw      bool
	failShader    bool
}

// interruptCall records one DispatchInterruptCallback(source, cpu) call.
type interruptCall struct{ source, cpu uint32 }

type fakeSwap struct {
	addr, width, height uint32
}

type fakeShaderLoad struct {
	kind       Pm4ShaderKind
	addr       uint32
	sizeDwords uint32
}

func (b *fakeBackend) IssueSwap(addr, width, height uint32) error {
	if b.failSwap {
		return &Pm4Error{Operation: "swap", Err: errFakeBackend}
	}
	b.swaps = append(b.swaps, fakeSwap{addr, width, height})
	return nil
}

func (b *fakeBackend) IssueDraw(req Pm4DrawRequest) error {
	if b.failDraw {
		return &Pm4Error{Operation: "draw", Err: errFakeBackend}
	}
	b.draws = append(b.draws, req)
	return nil
}

func (b *fakeBackend) LoadShader(kind Pm4ShaderKind, addr uint32, sizeDwords uint32) (Pm4ShaderHandle, error) {
	if b.failShader {
		return 0, &Pm4Error{Operation: "load shader", Err: errFakeBackend}
	}
	b.shadersLoaded = append(b.shadersLoaded, fakeShaderLoad{kind, addr, sizeDwords})
	b.nextHandle++
	return b.nextHandle, nil
}

func (b *fakeBackend) DispatchInterruptCallback(source, cpu uint32) {
	b.interrupts++
	b.interruptCalls = append(b.interruptCalls, interruptCall{source, cpu})
}
func (b *fakeBackend) MakeCoherent()              { b.coherentCalls++ }
func (b *fakeBackend) PrepareForWait()            { b.waitsBegun++ }
func (b *fakeBackend) ReturnFromWait()            { b.waitsEnded++ }

var errFakeBackend = &fakeTestError{"fake backend failure"}

type fakeTestError struct{ msg string }

func (e *fakeTestError) Error() string { return e.msg }

// fakeGuestMemory is a flat Pm4GuestMemory backed by a plain byte slice with
// no address-encoded endianness handling, for tests that only need plain
// big-endian guest words.
type fakeGuestMemory struct {
	mem []byte
}

func newFakeGuestMemory(size int) *fakeGuestMemory {
	return &fakeGuestMemory{mem: make([]byte, size)}
}

func (m *fakeGuestMemory) ReadU32(addr uint32) uint32 {
	return binary.BigEndian.Uint32(m.mem[addr : addr+4])
}

func (m *fakeGuestMemory) WriteU32(addr uint32, value uint32) {
	binary.BigEndian.PutUint32(m.mem[addr:addr+4], value)
}

func (m *fakeGuestMemory) ReadBytes(addr uint32, n uint32) []byte {
	return m.mem[addr : addr+n]
}

// newTestProcessor builds a Pm4CommandProcessor over a literal big-endian
// command stream written at the start of a fresh guest memory buffer, paired
// with a fakeBackend for assertions.
func newTestProcessor(words []uint32, capacity uint32) (*Pm4CommandProcessor, *fakeBackend, *fakeGuestMemory) {
	mem := make([]byte, capacity)
	for i, w := range words {
		off := uint32(i) * WordSize
		binary.BigEndian.PutUint32(mem[off:off+WordSize], w)
	}
	ring := NewPm4RingReader(mem, 0, capacity)
	ring.SetWriteOffset(uint32(len(words)) * WordSize)

	backend := &fakeBackend{}
	guestMem := &fakeGuestMemory{mem: mem}
	proc := NewPm4CommandProcessor(ring, guestMem, backend, NewPm4NullTrace(), Pm4Config{})
	return proc, backend, guestMem
}
