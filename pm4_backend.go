// pm4_backend.go - PM4 backend contract and command processor assembly

/*
pm4_backend.go - Backend Contract (§6) and Command Processor (C1-C8 assembly)

Pm4Backend is the narrow interface the interpreter drives rendering
through; the interpreter never reaches past it into a concrete renderer,
mirroring video_interface.go's VideoOutput/VideoSource split — a worker
(here, the command processor) talks to a small interface, and a separate
adapter (pm4_backend_voodoo.go) implements it against the real rendering
stack.

Pm4CommandProcessor wires C1-C8 together: it owns the ring reader, register
file, guest memory gateway, trace sink and backend, and runs the outer
decode loop described in §2. Its lifecycle (WorkerRunning, Stop) follows
coprocessor_manager.go's CoprocWorker stop/done shape.
*/

package main

import (
	"log"
	"sync/atomic"
)

// Pm4ShaderHandle is an opaque reference a Pm4Backend hands back from
// LoadShader, to be reused on later draws without reloading.
type Pm4ShaderHandle uint64

// Pm4ShaderKind distinguishes the two programmable stages PM4 loads.
type Pm4ShaderKind int

const (
	Pm4ShaderVertex Pm4ShaderKind = iota
	Pm4ShaderPixel
)

// Pm4Backend is the rendering contract the interpreter drives (§6).
// Rendering correctness itself is explicitly out of scope for the
// interpreter (§1 Non-goals) — this interface exists so the interpreter can
// be exercised and tested without any concrete renderer at all.
type Pm4Backend interface {
	// IssueSwap presents the frontbuffer at addr with the given dimensions,
	// as triggered by XE_SWAP.
	IssueSwap(addr uint32, width, height uint32) error
	// IssueDraw submits one draw call assembled by the Draw Submitter (C8).
	IssueDraw(req Pm4DrawRequest) error
	// LoadShader uploads/translates a shader microcode blob starting at
	// addr, sizeDwords 32-bit words long, returning a handle for later use.
	LoadShader(kind Pm4ShaderKind, addr uint32, sizeDwords uint32) (Pm4ShaderHandle, error)
	// DispatchInterruptCallback signals the embedding application that the
	// guest CPU's interrupt handler should run for the given source/cpu
	// pair, as triggered by INTERRUPT (once per set bit in its cpu_mask)
	// or CP_INT_ACK.
	DispatchInterruptCallback(source, cpu uint32)
	// MakeCoherent flushes any backend-side writes so a subsequent
	// COHER_STATUS_HOST read observes them.
	MakeCoherent()
	// PrepareForWait is called immediately before a WAIT_REG_MEM poll loop
	// begins blocking, so the backend can, for example, yield a GPU fence.
	PrepareForWait()
	// ReturnFromWait is called once a WAIT_REG_MEM poll loop's condition
	// is satisfied or it is cancelled.
	ReturnFromWait()
}

// Pm4Config is the small injected configuration the command processor
// reads, never a package-level global (§9.4).
type Pm4Config struct {
	// QueryOcclusionFakeSampleCount is the sample count VIZ_QUERY / the
	// EVENT_WRITE_ZPD occlusion fake report when no real occlusion
	// hardware is modelled.
	QueryOcclusionFakeSampleCount uint32
	// VSync is stored with the config but not read by the command
	// processor: WAIT_REG_MEM polls at a fixed interval whatever its value,
	// and Pm4BackendAdapter.IssueSwap waits for vsync according to the
	// display's own DisplayConfig.VSync instead.
	VSync bool
}

// Pm4CommandProcessor assembles the ring reader (C1), register file (C2),
// memory gateway (C3), trace writer (C4), decoder (C5), dispatcher (C6),
// opcode handlers (C7) and draw submitter (C8) into the single-worker
// command-stream interpreter described in §2 and §5.
type Pm4CommandProcessor struct {
	ring    *Pm4RingReader
	regs    *Pm4RegisterFile
	mem     Pm4GuestMemory
	trace   Pm4Trace
	backend Pm4Backend
	config  Pm4Config

	// Predication state, written by SET_BIN_MASK/SET_BIN_SELECT (§3).
	binSelect uint64
	binMask   uint64

	// Occlusion query state toggled by VIZ_QUERY.
	vizQueryActive bool

	indirectDepth int

	// frameCounter counts successful XE_SWAP presentations.
	frameCounter uint64

	// pendingTrace, when non-nil, is installed as p.trace on the next
	// XE_SWAP and marks the new trace as single-frame: it is flushed and
	// closed again on the swap after that one (§4.6 step 7).
	pendingTrace     Pm4Trace
	traceSingleFrame bool

	// running is the cooperative-cancellation flag polled by
	// WAIT_REG_MEM and the outer decode loop (§5).
	running atomic.Bool
}

// NewPm4CommandProcessor builds a command processor over an existing ring
// window, wired to backend and config. trace may be NewPm4NullTrace().
func NewPm4CommandProcessor(ring *Pm4RingReader, mem Pm4GuestMemory, backend Pm4Backend, trace Pm4Trace, config Pm4Config) *Pm4CommandProcessor {
	p := &Pm4CommandProcessor{
		ring:    ring,
		mem:     mem,
		trace:   trace,
		backend: backend,
		config:  config,
	}
	p.regs = NewPm4RegisterFile(p)
	p.running.Store(true)
	return p
}

// AckInterrupt implements Pm4RegisterHooks, forwarding CP_INT_ACK writes to
// the backend's interrupt callback. CP_INT_ACK is a host acknowledgement
// rather than a GPU-raised interrupt, so it is reported as source=0 to keep
// it distinct from INTERRUPT's per-CPU source=1 fan-out; cpu=0 since
// CP_INT_ACK carries no CPU mask of its own.
func (p *Pm4CommandProcessor) AckInterrupt() {
	p.backend.DispatchInterruptCallback(0, 0)
}

// RequestSingleFrameTrace installs trace to begin capturing at the next
// XE_SWAP; it is flushed and closed automatically on the swap after that
// (§4.6 step 7), reverting p.trace to a no-op sink.
func (p *Pm4CommandProcessor) RequestSingleFrameTrace(trace Pm4Trace) {
	p.pendingTrace = trace
}

// MakeCoherent implements Pm4RegisterHooks, forwarding COHER_STATUS_HOST
// reads to the backend.
func (p *Pm4CommandProcessor) MakeCoherent() {
	p.backend.MakeCoherent()
}

// Stop requests the worker loop exit at its next opportunity; in-flight
// WAIT_REG_MEM polls observe this and return early (§5).
func (p *Pm4CommandProcessor) Stop() {
	p.running.Store(false)
}

// IsRunning reports whether the worker has not been stopped.
func (p *Pm4CommandProcessor) IsRunning() bool {
	return p.running.Load()
}

// Run drives the outer decode loop: read a header, decode it, dispatch it,
// repeat until Stop is called or the ring has nothing left to consume.
// Matches §2's control-flow description and coprocessor_manager.go's
// pattern of a single dedicated goroutine driving one device's work queue.
func (p *Pm4CommandProcessor) Run() {
	for p.IsRunning() {
		if p.ring.ReadCount() < WordSize {
			return
		}
		header := p.ring.ReadU32Swapped()
		pkt := DecodePacketHeader(header)
		if pkt.Kind == Pm4PacketUninitialized {
			// The guest hasn't actually produced this word yet (stale
			// 0xCDCDCDCD fill pattern) even though ReadCount said it was
			// available. Logged, but still decoded and dispatched as a
			// real packet rather than treated as end-of-stream.
			log.Printf("pm4: uninitialized ring memory at offset %d, decoding header normally", p.ring.ReadOffset()-WordSize)
			pkt = decodeNormalPacket(header)
		}
		if !p.dispatchPacket(pkt) {
			log.Printf("pm4: packet dispatch failed, opcode=0x%02X type=%d", pkt.Opcode, pkt.Type)
		}
	}
}
