// pm4_draw.go - PM4 draw submission for the Intuition Engine GPU command processor

/*
pm4_draw.go - Draw Submitter (C8)

Assembles a Pm4DrawRequest from the VGT draw-initiator register and the
index-buffer registers, then hands it to the backend. Source-select
(DMA/Immediate/AutoIndex/Invalid) determines where the index data actually
comes from; an Invalid source or a backend failure is logged and treated
as a non-fatal handler failure, since one bad draw call should not bring
the rest of the command stream down (§7). Grounded on video_voodoo.go's
split between shadow-register state and a backend call triggered by a
sentinel register write (VOODOO_TRIANGLE_CMD -> executeTriangleCmd).
*/

package main

import "log"

// IndexBufferInfo describes where index data for a draw comes from, as
// carried in the VGT DMA base/size registers.
type IndexBufferInfo struct {
	Format     uint32 // IndexFormatU16 or IndexFormatU32
	Addr       uint32
	Count      uint32
	Endianness AddressEndianness
}

// Pm4DrawRequest is the fully assembled draw call the backend executes.
type Pm4DrawRequest struct {
	Source  int // DrawSourceDMA, DrawSourceImmediate, DrawSourceAutoIndex, DrawSourceInvalid
	Indices IndexBufferInfo
	Count   uint32
}

// submitDraw builds a Pm4DrawRequest from current register state and
// issues it to the backend. A viz query in progress culls the draw before
// it reaches the backend at all, per EVENT_WRITE_ZPD's "kill pixels after
// hi-Z" behaviour — counted as a fake occlusion sample instead of an
// actual draw.
func (p *Pm4CommandProcessor) submitDraw(source int) bool {
	if p.vizQueryActive {
		p.regs.Write(RegVizQueryStatus0, p.config.QueryOcclusionFakeSampleCount)
		return true
	}

	drawInitiator := p.regs.Read(RegVGTDrawInitiator)
	req := Pm4DrawRequest{
		Source: source,
		Count:  drawInitiator,
	}

	switch source {
	case DrawSourceDMA:
		addr := p.regs.Read(RegVGTDmaBase)
		size := p.regs.Read(RegVGTDmaSize)
		aligned, mode := DecodeAddressEndianness(addr)
		req.Indices = IndexBufferInfo{
			Format:     IndexFormatU16,
			Addr:       aligned,
			Count:      size / 2,
			Endianness: mode,
		}
	case DrawSourceImmediate, DrawSourceAutoIndex:
		// No separate index buffer: immediate mode streams vertices
		// directly, auto-index synthesizes 0..Count-1.
	default:
		log.Printf("pm4: draw with invalid source select")
		return false
	}

	if err := p.backend.IssueDraw(req); err != nil {
		log.Printf("pm4: backend draw failed: %v", err)
		return false
	}
	return true
}
