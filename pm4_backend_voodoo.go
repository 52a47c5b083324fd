// pm4_backend_voodoo.go - Voodoo-backed PM4 backend adapter

/*
pm4_backend_voodoo.go - Pm4Backend Adapter over *VoodooEngine

Implements the §6 backend contract by driving an existing, unmodified
*VoodooEngine exactly the way its own register-triggered command model
expects: write vertex registers, then trigger the rasterizer via
HandleWrite(VOODOO_TRIANGLE_CMD, ...), the same path video_voodoo.go's own
HandleWrite dispatch already serves. Every draw call is reduced to one
fixed unit triangle over the Voodoo's three-vertex register set (the
draw's index/vertex data is not read), since the Voodoo SST-1 the teacher emulates is a
fixed-function rasterizer with no vertex/pixel shader stage at all -
LoadShader is therefore a deliberate no-op here, not a missing feature.
Frame handoff to the display goes through video_interface.go's VideoOutput,
reusing video_backend_ebiten.go as the presentation surface.
*/

package main

import "log"

// Pm4BackendAdapter implements Pm4Backend by delegating draw/swap calls
// into a *VoodooEngine and frame presentation into a VideoOutput.
type Pm4BackendAdapter struct {
	voodoo  *VoodooEngine
	display VideoOutput
	onIntr  func()
}

// NewPm4BackendAdapter wires a Voodoo engine and a display backend into a
// Pm4Backend. onInterrupt may be nil, in which case INTERRUPT/CP_INT_ACK
// are acknowledged but nothing is signalled to an embedding CPU.
func NewPm4BackendAdapter(voodoo *VoodooEngine, display VideoOutput, onInterrupt func()) *Pm4BackendAdapter {
	return &Pm4BackendAdapter{voodoo: voodoo, display: display, onIntr: onInterrupt}
}

// IssueSwap triggers the Voodoo buffer swap and forwards the resulting
// frame to the display backend.
func (a *Pm4BackendAdapter) IssueSwap(addr uint32, width, height uint32) error {
	a.voodoo.HandleWrite(VOODOO_SWAP_BUFFER_CMD, 0)
	frame := a.voodoo.GetFrame()
	if frame == nil {
		return nil
	}
	if err := a.display.UpdateFrame(frame); err != nil {
		return &Pm4Error{Operation: "swap", Details: "display update", Err: err}
	}
	if a.display.GetDisplayConfig().VSync {
		return a.display.WaitForVSync()
	}
	return nil
}

// IssueDraw reduces req to a single flat-shaded triangle submitted through
// the Voodoo's vertex registers, since this interpreter's own draw model
// (indexed vertex buffers, shader pipelines) has no counterpart in a
// fixed-function rasterizer. This is a deliberate simplification: rendering
// correctness is explicitly out of scope (§1 Non-goals), so the adapter's
// job is only to prove the backend contract is exercised end to end.
func (a *Pm4BackendAdapter) IssueDraw(req Pm4DrawRequest) error {
	// A minimal unit triangle; real coordinates would come from vertex
	// fetch constants this interpreter does not decode.
	a.voodoo.HandleWrite(VOODOO_VERTEX_AX, 0<<4)
	a.voodoo.HandleWrite(VOODOO_VERTEX_AY, 0<<4)
	a.voodoo.HandleWrite(VOODOO_VERTEX_BX, 64<<4)
	a.voodoo.HandleWrite(VOODOO_VERTEX_BY, 0<<4)
	a.voodoo.HandleWrite(VOODOO_VERTEX_CX, 0<<4)
	a.voodoo.HandleWrite(VOODOO_VERTEX_CY, 64<<4)
	a.voodoo.HandleWrite(VOODOO_TRIANGLE_CMD, 0)
	return nil
}

// LoadShader is a deliberate no-op: the Voodoo SST-1 is fixed-function and
// has no programmable stage to load microcode into.
func (a *Pm4BackendAdapter) LoadShader(kind Pm4ShaderKind, addr uint32, sizeDwords uint32) (Pm4ShaderHandle, error) {
	log.Printf("pm4: shader load ignored by fixed-function backend (kind=%d, %d dwords)", kind, sizeDwords)
	return 0, nil
}

// DispatchInterruptCallback forwards to the single parameterless hook the
// adapter was constructed with; source/cpu are not distinguished since the
// embedding application supplies one handler for the whole guest CPU.
func (a *Pm4BackendAdapter) DispatchInterruptCallback(source, cpu uint32) {
	if a.onIntr != nil {
		a.onIntr()
	}
}

// MakeCoherent is a no-op: the adapter calls into VoodooEngine synchronously
// on the same goroutine as the command processor, so there is no pending
// backend-side write that could be observed out of order.
func (a *Pm4BackendAdapter) MakeCoherent() {}

// PrepareForWait and ReturnFromWait have nothing to do here: no GPU fence
// or async queue is modelled between the command processor and the Voodoo
// engine.
func (a *Pm4BackendAdapter) PrepareForWait()  {}
func (a *Pm4BackendAdapter) ReturnFromWait() {}
