// ps2_gs.go - GIF/GS front-end: GIFtag decoding and GS register emulation

/*
The GS front-end owns the live Graphics Synthesizer register context and
decodes GIFtag-framed packets (PACKED, REGLIST, IMAGE) into register
writes and pixel transfers, per spec.md §4.4. It is driven by the GIF
arbiter's Drain() as the `process` callback, and also answers the
privileged-register MMIO window at [0x12000000, 0x12002000) the same way
DMAEngine answers its own channel windows — a MapIO callback pair per
component, matching the teacher's machine_bus.go dispatch style.
*/

package main

import (
	"encoding/binary"
	"math"
)

// psm (pixel storage mode) constants used by HWREG transfers.
const (
	psmCT32 = 0x00
	psmCT24 = 0x01
	psmCT16 = 0x02
	psmT8   = 0x13
	psmT4   = 0x14
)

const (
	trxDirHostToLocal  = 0
	trxDirLocalToHost  = 1
	trxDirLocalToLocal = 2
	trxDirDeactivated  = 3
)

type gsVertex struct {
	x, y, z    float64
	f          uint32
	r, g, b, a uint8
	s, t, q    float64
	u, v       float64
	adc        bool
}

type gsContextRegs struct {
	fbp, fbw, psm uint32
	fbmsk         uint32
	scax0, scax1  int32
	scay0, scay1  int32
	ofx, ofy      uint32 // 12.4 fixed point, low 16 bits of XYOFFSET OFX/OFY
	tbp0, tbw     uint32
	tpsm          uint32
	tw, th        uint32
	alpha         uint64
	test          uint64
}

// GSFrontend holds the live GS register state and feeds assembled
// primitives to a rasterizer bridge.
type GSFrontend struct {
	mem   *Memory
	raster *RasterizerBridge

	// privileged registers
	pmode, smode1, smode2, srfsh               uint64
	synch1, synch2, syncv                      uint64
	dispfb1, display1, dispfb2, display2        uint64
	extbuf, extdata, extwrite, bgcolor          uint64
	csr, imr, busdir, siglblid                  uint64

	ctx        [2]gsContextRegs
	curCtx     int
	prim       uint32
	prmodecont uint64
	prmode     uint64

	rgbaQ struct{ r, g, b, a uint8 }
	q     float64
	st    struct{ s, t float64 }
	uv    struct{ u, v uint32 }

	vertexQueue []gsVertex

	bitbltbuf uint64
	trxpos    uint64
	trxreg    uint64
	trxdir    uint32

	xferActive bool
	xferDst    bool // true = host->local in progress
	xferPixelsWritten uint32
	xferTotalPixels   uint32
	xferWidth         uint32
	xferHeight        uint32
	xferRow, xferCol  uint32
	pixelCarry        []byte // leftover sub-byte bits from a unit that didn't divide evenly by bpp

	readback       []byte
	readbackActive bool

	gifTagsProcessed uint64
}

// NewGSFrontend constructs the front-end and maps its privileged register window.
func NewGSFrontend(mem *Memory, raster *RasterizerBridge) *GSFrontend {
	gs := &GSFrontend{mem: mem, raster: raster}
	gs.q = 1.0
	mem.MapIO(ps2GSPrivBase, ps2GSPrivBase+ps2GSPrivSize-1, gs.readPriv, gs.writePriv)
	return gs
}

func (gs *GSFrontend) readPriv(addr uint32) uint32 {
	off := addr - ps2GSPrivBase
	reg, hi := gs.privRegFor(off)
	v := gs.privValue(reg)
	if hi {
		return uint32(v >> 32)
	}
	return uint32(v)
}

func (gs *GSFrontend) writePriv(addr uint32, val uint32) {
	off := addr - ps2GSPrivBase
	reg, hi := gs.privRegFor(off)
	old := gs.privValue(reg)
	var nv uint64
	if hi {
		nv = (old & 0xFFFFFFFF) | uint64(val)<<32
	} else {
		nv = (old &^ 0xFFFFFFFF) | uint64(val)
	}
	gs.setPrivValue(reg, nv, off)
}

// privRegFor maps an 8-byte-aligned offset window to the logical register
// and reports whether addr targets the high dword.
func (gs *GSFrontend) privRegFor(off uint32) (uint32, bool) {
	aligned := off &^ 0x7
	hi := off&0x4 != 0 && aligned != gsCSR && aligned != gsIMR && aligned != gsBUSDIR && aligned != gsSIGLBLID
	return aligned, hi
}

func (gs *GSFrontend) privValue(reg uint32) uint64 {
	switch reg {
	case gsPMODE:
		return gs.pmode
	case gsSMODE1:
		return gs.smode1
	case gsSMODE2:
		return gs.smode2
	case gsSRFSH:
		return gs.srfsh
	case gsSYNCH1:
		return gs.synch1
	case gsSYNCH2:
		return gs.synch2
	case gsSYNCV:
		return gs.syncv
	case gsDISPFB1:
		return gs.dispfb1
	case gsDISPLAY1:
		return gs.display1
	case gsDISPFB2:
		return gs.dispfb2
	case gsDISPLAY2:
		return gs.display2
	case gsEXTBUF:
		return gs.extbuf
	case gsEXTDATA:
		return gs.extdata
	case gsEXTWRITE:
		return gs.extwrite
	case gsBGCOLOR:
		return gs.bgcolor
	case gsCSR:
		return gs.csr
	case gsIMR:
		return gs.imr
	case gsBUSDIR:
		return gs.busdir
	case gsSIGLBLID:
		return gs.siglblid
	}
	return 0
}

func (gs *GSFrontend) setPrivValue(reg uint32, v uint64, off uint32) {
	switch reg {
	case gsPMODE:
		gs.pmode = v
	case gsSMODE1:
		gs.smode1 = v
	case gsSMODE2:
		gs.smode2 = v
	case gsSRFSH:
		gs.srfsh = v
	case gsSYNCH1:
		gs.synch1 = v
	case gsSYNCH2:
		gs.synch2 = v
	case gsSYNCV:
		gs.syncv = v
	case gsDISPFB1:
		gs.dispfb1 = v
	case gsDISPLAY1:
		gs.display1 = v
	case gsDISPFB2:
		gs.dispfb2 = v
	case gsDISPLAY2:
		gs.display2 = v
	case gsEXTBUF:
		gs.extbuf = v
	case gsEXTDATA:
		gs.extdata = v
	case gsEXTWRITE:
		gs.extwrite = v
	case gsBGCOLOR:
		gs.bgcolor = v
	case gsCSR:
		// Write-one-to-clear: only bit0 (SIGNAL) and bit1 (FINISH) are
		// acknowledged; other bits are ignored.
		clearMask := v & 0x3
		gs.csr &^= clearMask
	case gsIMR:
		gs.imr = v
	case gsBUSDIR:
		gs.busdir = v
	case gsSIGLBLID:
		gs.siglblid = v
	}
}

// Process is the GIF arbiter's dispatch callback: decode one packet's
// GIFtag-framed stream until EOP or data exhaustion.
func (gs *GSFrontend) Process(path pathID, data []byte) {
	pos := 0
	for pos+16 <= len(data) {
		tag := decodeGIFTag(data[pos : pos+16])
		pos += 16
		if tag.flg == 3 {
			logFault(&InvalidGifTagError{Reason: "FLG=3 reserved", Source: "GIFtag"})
			return
		}

		if tag.pre && tag.flg != 2 {
			gs.prim = tag.prim
			gs.vertexQueue = gs.vertexQueue[:0]
		}
		gs.q = 1.0
		gs.gifTagsProcessed++

		if tag.nloop == 0 {
			if tag.eop {
				return
			}
			continue
		}

		switch tag.flg {
		case 0:
			pos = gs.processPacked(data, pos, tag)
		case 1:
			pos = gs.processReglist(data, pos, tag)
		case 2:
			pos = gs.processImage(data, pos, tag)
		}

		if tag.eop {
			return
		}
	}
}

type gifTag struct {
	nloop uint32
	eop   bool
	pre   bool
	prim  uint32
	flg   uint32
	nreg  uint32
	regs  [16]uint32
}

func decodeGIFTag(b []byte) gifTag {
	lo := binary.LittleEndian.Uint64(b[0:8])
	hi := binary.LittleEndian.Uint64(b[8:16])
	t := gifTag{
		nloop: uint32(lo & 0x7FFF),
		eop:   lo&(1<<15) != 0,
		pre:   lo&(1<<46) != 0,
		prim:  uint32((lo >> 47) & 0x7FF),
		flg:   uint32((lo >> 58) & 0x3),
	}
	nreg := uint32((lo >> 60) & 0xF)
	if nreg == 0 {
		nreg = 16
	}
	t.nreg = nreg
	for i := uint32(0); i < 16; i++ {
		t.regs[i] = uint32((hi >> (i * 4)) & 0xF)
	}
	return t
}

func (gs *GSFrontend) processPacked(data []byte, pos int, tag gifTag) int {
	for loop := uint32(0); loop < tag.nloop; loop++ {
		for r := uint32(0); r < tag.nreg; r++ {
			if pos+16 > len(data) {
				return pos
			}
			lo := binary.LittleEndian.Uint64(data[pos : pos+8])
			hi := binary.LittleEndian.Uint64(data[pos+8 : pos+16])
			pos += 16
			desc := tag.regs[r]
			gs.dispatchPacked(desc, lo, hi)
		}
	}
	return pos
}

func (gs *GSFrontend) dispatchPacked(desc uint32, lo, hi uint64) {
	switch desc {
	case 0x0E: // A+D
		gs.handleADWrite(lo, uint32(hi&0xFF))
	case 0x0F: // NOP
	case 0x00: // PRIM
		gs.handleADWrite(lo&0x7FF, 0x00)
	case 0x01: // RGBAQ
		r := uint8(lo)
		g := uint8(lo >> 32)
		b := uint8(hi)
		a := uint8(hi >> 32)
		gs.rgbaQ.r, gs.rgbaQ.g, gs.rgbaQ.b, gs.rgbaQ.a = r, g, b, a
	case 0x02: // ST
		s := f32FromBits(uint32(lo))
		t := f32FromBits(uint32(lo >> 32))
		q := f32FromBits(uint32(hi))
		if q == 0 || math.IsNaN(q) {
			q = 1.0
		}
		gs.st.s, gs.st.t, gs.q = s, t, q
	case 0x03: // UV
		u := uint32(lo & 0x3FFF)
		v := uint32((lo >> 32) & 0x3FFF)
		gs.uv.u, gs.uv.v = u, v
	case 0x04, 0x05: // XYZF2/3, XYZ2/3
		gs.packedXYZ(desc, lo, hi)
	case 0x0A: // FOG
		gs.handleADWrite(lo&0xFF00000000, 0x0A)
	}
}

func (gs *GSFrontend) packedXYZ(desc uint32, lo, hi uint64) {
	x := uint32(lo & 0xFFFF)
	y := uint32((lo >> 32) & 0xFFFF)
	adc := hi&(1<<47) != 0
	v := gsVertex{adc: adc}
	v.x = (float64(int32(x)) - float64(int32(gs.ctx[gs.curCtx].ofx))) / 16.0
	v.y = (float64(int32(y)) - float64(int32(gs.ctx[gs.curCtx].ofy))) / 16.0
	if desc == 0x04 {
		z := uint32((hi >> 4) & 0xFFFFFF)
		v.f = uint32((hi >> 36) & 0xFF)
		v.z = float64(z) / float64(1<<24)
	} else {
		z := uint32(hi)
		v.z = float64(z) / float64(1<<32)
	}
	gs.pushVertex(v)
}

func (gs *GSFrontend) processReglist(data []byte, pos int, tag gifTag) int {
	total := tag.nreg * tag.nloop
	consumed := uint32(0)
	regIdx := uint32(0)
	for consumed < total {
		if pos+8 > len(data) {
			return pos
		}
		desc64 := binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
		reg := tag.regs[regIdx%tag.nreg]
		regIdx++
		consumed++
		if reg == 0x0E || reg == 0x0F {
			continue // illegal in REGLIST, skipped
		}
		gs.handleADWrite(desc64, reg)
	}
	if total%2 == 1 {
		pos += 8 // padding unit to stay qword-aligned
	}
	return pos
}

// processImage consumes NLOOP 128-bit qwords as two 64-bit HWREG writes
// each, per spec.md §4.4's IMAGE packet rule.
func (gs *GSFrontend) processImage(data []byte, pos int, tag gifTag) int {
	remaining := int(tag.nloop)
	for remaining > 0 && pos+16 <= len(data) {
		lo := binary.LittleEndian.Uint64(data[pos : pos+8])
		hi := binary.LittleEndian.Uint64(data[pos+8 : pos+16])
		pos += 16
		gs.hwregEmit64(lo)
		gs.hwregEmit64(hi)
		remaining--
	}
	return pos
}

func f32FromBits(bits uint32) float64 {
	return float64(decodeFloat32(bits))
}

// handleADWrite dispatches an A+D (address+data) GS register write: reg
// selects the target by its low byte, matching the PS2's GIFtag A+D
// register id encoding (spec.md §4.4).
func (gs *GSFrontend) handleADWrite(data uint64, reg uint32) {
	switch reg & 0xFF {
	case 0x00: // PRIM
		gs.prim = uint32(data & 0x7FF)
		ctxBit := (gs.prim >> 9) & 1
		gs.curCtx = int(ctxBit)
		gs.vertexQueue = gs.vertexQueue[:0]
	case 0x01: // RGBAQ
		gs.rgbaQ.r = uint8(data)
		gs.rgbaQ.g = uint8(data >> 8)
		gs.rgbaQ.b = uint8(data >> 16)
		gs.rgbaQ.a = uint8(data >> 24)
		q := f32FromBits(uint32(data >> 32))
		if q != 0 {
			gs.q = q
		}
	case 0x02: // ST direct (Q untouched, unlike the PACKED descriptor form)
		gs.st.s = f32FromBits(uint32(data))
		gs.st.t = f32FromBits(uint32(data >> 32))
	case 0x03: // UV direct
		gs.uv.u = uint32(data & 0x3FFF)
		gs.uv.v = uint32((data >> 32) & 0x3FFF)
	case 0x04: // XYZF2
		gs.packedXYZ(0x04, data, 0)
	case 0x05: // XYZ2
		gs.packedXYZ(0x05, data, 0)
	case 0x06: // TEX0_1
		gs.loadTex0(0, data)
	case 0x07: // TEX0_2
		gs.loadTex0(1, data)
	case 0x08, 0x09: // CLAMP_1, CLAMP_2 - wrap/clamp mode, not modeled
	case 0x0A: // FOG
	case 0x0C: // XYZF3
		gs.packedXYZ(0x04, data, 0)
	case 0x0D: // XYZ3
		gs.packedXYZ(0x05, data, 0)
	case 0x14, 0x15: // TEX1_1, TEX1_2 - filtering/LOD mode, not modeled
	case 0x16, 0x17: // TEX2_1, TEX2_2 - palette reload, not modeled
	case 0x18: // XYOFFSET_1
		gs.ctx[0].ofx = uint32(data & 0xFFFF)
		gs.ctx[0].ofy = uint32((data >> 32) & 0xFFFF)
	case 0x19: // XYOFFSET_2
		gs.ctx[1].ofx = uint32(data & 0xFFFF)
		gs.ctx[1].ofy = uint32((data >> 32) & 0xFFFF)
	case 0x1A: // PRMODECONT
		gs.prmodecont = data
	case 0x1B: // PRMODE
		gs.prmode = data
	case 0x1C: // TEXCLUT - not modeled
	case 0x22: // SCANMSK - not modeled
	case 0x34, 0x35, 0x36, 0x37: // MIPTBP1_1/2, MIPTBP2_1/2 - not modeled
	case 0x3B: // TEXA - not modeled
	case 0x3D: // FOGCOL - not modeled
	case 0x3F: // TEXFLUSH - no-op, texture cache not modeled
	case 0x40: // SCISSOR_1
		gs.loadScissor(0, data)
	case 0x41: // SCISSOR_2
		gs.loadScissor(1, data)
	case 0x42: // ALPHA_1
		gs.ctx[0].alpha = data
	case 0x43: // ALPHA_2
		gs.ctx[1].alpha = data
	case 0x44: // DIMX - dither matrix, not modeled
	case 0x45: // DTHE - dither enable, not modeled
	case 0x46: // COLCLAMP - not modeled
	case 0x47: // TEST_1
		gs.ctx[0].test = data
	case 0x48: // TEST_2
		gs.ctx[1].test = data
	case 0x49: // PABE - not modeled
	case 0x4A, 0x4B: // FBA_1, FBA_2 - not modeled
	case 0x4C: // FRAME_1
		gs.loadFrame(0, data)
	case 0x4D: // FRAME_2
		gs.loadFrame(1, data)
	case 0x4E, 0x4F: // ZBUF_1, ZBUF_2 - depth buffer, not modeled
	case 0x50: // BITBLTBUF
		gs.bitbltbuf = data
	case 0x51: // TRXPOS
		gs.trxpos = data
	case 0x52: // TRXREG
		gs.trxreg = data
	case 0x53: // TRXDIR
		gs.trxdir = uint32(data & 0x3)
		gs.beginTransfer()
	case 0x54: // HWREG
		gs.hwregEmit64(data)
	case 0x59: // DISPFB1
		gs.dispfb1 = data
	case 0x5A: // DISPLAY1
		gs.display1 = data
	case 0x60: // SIGNAL
		gs.siglblid = (gs.siglblid &^ 0xFFFFFFFF) | (data & 0xFFFFFFFF)
		gs.csr |= 1 << 0
	case 0x61: // FINISH
		gs.csr |= 1 << 1
		gs.raster.Swap()
	case 0x62: // LABEL - ID masking, not modeled
	}
}

// gsBlockUnit256 is the 256-byte (64-word) addressing unit used by TBP0
// and BITBLTBUF's SBP/DBP fields; FRAME/ZBUF's FBP field uses the larger
// 8192-byte (2048-word) page unit instead.
const gsBlockUnit256 = 256
const gsBlockUnit8192 = 8192

func (gs *GSFrontend) loadTex0(ctx int, data uint64) {
	c := &gs.ctx[ctx]
	c.tbp0 = uint32(data&0x3FFF) * gsBlockUnit256
	c.tbw = uint32((data >> 14) & 0x3F)
	c.tpsm = uint32((data >> 20) & 0x3F)
	c.tw = 1 << ((data >> 26) & 0xF)
	c.th = 1 << ((data >> 30) & 0xF)
}

func (gs *GSFrontend) loadScissor(ctx int, data uint64) {
	c := &gs.ctx[ctx]
	c.scax0 = int32(data & 0x7FF)
	c.scax1 = int32((data >> 16) & 0x7FF)
	c.scay0 = int32((data >> 32) & 0x7FF)
	c.scay1 = int32((data >> 48) & 0x7FF)
}

func (gs *GSFrontend) loadFrame(ctx int, data uint64) {
	c := &gs.ctx[ctx]
	c.fbp = uint32(data&0x1FF) * gsBlockUnit8192
	c.fbw = uint32((data >> 16) & 0x3F) * 64
	c.psm = uint32((data >> 24) & 0x3F)
	c.fbmsk = uint32(data >> 32)
}

// pushVertex appends a vertex and kicks a primitive once enough vertices
// have accumulated for the current PRIM type.
func (gs *GSFrontend) pushVertex(v gsVertex) {
	v.r, v.g, v.b, v.a = gs.rgbaQ.r, gs.rgbaQ.g, gs.rgbaQ.b, gs.rgbaQ.a
	v.s, v.t, v.q = gs.st.s, gs.st.t, gs.q
	v.u, v.v = float64(gs.uv.u)/16.0, float64(gs.uv.v)/16.0
	gs.vertexQueue = append(gs.vertexQueue, v)

	primType := gs.prim & 0x7
	needed := vertsNeededFor(primType)
	if len(gs.vertexQueue) < needed {
		return
	}

	gs.kickPrimitive(primType)

	switch primType {
	case 0, 1, 3: // POINT, LINE, TRIANGLE: consume the whole batch
		gs.vertexQueue = gs.vertexQueue[:0]
	case 2, 4, 5: // LINE_STRIP, TRIANGLE_STRIP, TRIANGLE_FAN: slide window
		gs.vertexQueue = gs.vertexQueue[1:]
	case 6: // SPRITE: consume the pair
		gs.vertexQueue = gs.vertexQueue[:0]
	}
}

func vertsNeededFor(primType uint32) int {
	switch primType {
	case 0:
		return 1
	case 1, 2:
		return 2
	case 3, 4, 5:
		return 3
	case 6:
		return 2
	}
	return 1
}

func (gs *GSFrontend) kickPrimitive(primType uint32) {
	if gs.raster == nil {
		return
	}
	c := &gs.ctx[gs.curCtx]
	var kind primitiveKind
	switch primType {
	case 0:
		kind = primPoint
	case 1:
		kind = primLine
	case 2:
		kind = primLineStrip
	case 3:
		kind = primTriangle
	case 4:
		kind = primTriangleStrip
	case 5:
		kind = primTriangleFan
	case 6:
		kind = primSprite
	}
	p := Primitive{Kind: kind, TBP0: c.tbp0, TPSM: c.tpsm, FBP: c.fbp, FBW: c.fbw}
	n := len(gs.vertexQueue)
	if n > 4 {
		n = 4
	}
	for i := 0; i < n; i++ {
		v := gs.vertexQueue[len(gs.vertexQueue)-n+i]
		p.Vertices[i] = primVertex{X: v.x, Y: v.y, Z: v.z, R: v.r, G: v.g, B: v.b, A: v.a, U: v.u, V: v.v}
	}
	p.NumVerts = n
	gs.raster.Push(p)
}

func decodeFloat32(bits uint32) float32 {
	return math.Float32frombits(bits)
}

// bitbltbuf field accessors, per the BITBLTBUF register layout.
func (gs *GSFrontend) sbp() uint32  { return uint32(gs.bitbltbuf&0x3FFF) * gsBlockUnit256 }
func (gs *GSFrontend) sbw() uint32  { return uint32((gs.bitbltbuf >> 16) & 0x3F) * 64 }
func (gs *GSFrontend) spsm() uint32 { return uint32((gs.bitbltbuf >> 24) & 0x3F) }
func (gs *GSFrontend) dbp() uint32  { return uint32((gs.bitbltbuf >> 32) & 0x3FFF) * gsBlockUnit256 }
func (gs *GSFrontend) dbw() uint32  { return uint32((gs.bitbltbuf >> 48) & 0x3F) * 64 }
func (gs *GSFrontend) dpsm() uint32 { return uint32((gs.bitbltbuf >> 56) & 0x3F) }

func (gs *GSFrontend) ssax() uint32 { return uint32(gs.trxpos & 0x7FF) }
func (gs *GSFrontend) ssay() uint32 { return uint32((gs.trxpos >> 16) & 0x7FF) }
func (gs *GSFrontend) dsax() uint32 { return uint32((gs.trxpos >> 32) & 0x7FF) }
func (gs *GSFrontend) dsay() uint32 { return uint32((gs.trxpos >> 48) & 0x7FF) }

// bitsPerPixel reports the pixel size, in bits, for a storage format.
func bitsPerPixel(psm uint32) int {
	switch psm {
	case psmCT32:
		return 32
	case psmCT24:
		return 24
	case psmCT16, 0x0A: // CT16, CT16S
		return 16
	case psmT8, 0x1B: // T8, T8H share an 8-bit footprint here
		return 8
	case psmT4:
		return 4
	}
	return 32
}

// beginTransfer latches the active BITBLTBUF/TRXPOS/TRXREG register set and
// either starts a streaming host<->local transfer or performs an immediate
// local-to-local copy, per the TRXDIR write semantics of spec.md §4.4.
func (gs *GSFrontend) beginTransfer() {
	rrw := uint32(gs.trxreg & 0xFFF)
	rrh := uint32((gs.trxreg >> 32) & 0xFFF)
	gs.xferWidth = rrw
	gs.xferHeight = rrh
	gs.xferTotalPixels = rrw * rrh
	gs.xferPixelsWritten = 0
	gs.xferRow, gs.xferCol = 0, 0
	gs.pixelCarry = nil
	gs.readback = nil

	switch gs.trxdir {
	case trxDirHostToLocal:
		gs.xferActive = true
		gs.xferDst = true
		gs.readbackActive = false
	case trxDirLocalToHost:
		gs.xferActive = true
		gs.xferDst = false
		gs.readbackActive = true
		gs.readback = make([]byte, 0, gs.xferTotalPixels*4)
	case trxDirLocalToLocal:
		gs.copyLocalToLocal()
		gs.xferActive = false
		gs.readbackActive = false
	case trxDirDeactivated:
		gs.xferActive = false
		gs.readbackActive = false
	}
}

// copyLocalToLocal performs an immediate VRAM-to-VRAM blit; only PSMCT32
// source/destination pairs are modeled, per SPEC_FULL.md's scoped copy path.
func (gs *GSFrontend) copyLocalToLocal() {
	if gs.spsm() != psmCT32 || gs.dpsm() != psmCT32 {
		return
	}
	vram := gs.mem.GSVRAM()
	srcBase := gs.sbp() + gs.ssay()*gs.sbw()*4
	dstBase := gs.dbp() + gs.dsay()*gs.dbw()*4
	for y := uint32(0); y < gs.xferHeight; y++ {
		srcRow := srcBase + y*gs.sbw()*4 + gs.ssax()*4
		dstRow := dstBase + y*gs.dbw()*4 + gs.dsax()*4
		n := gs.xferWidth * 4
		if int(srcRow+n) > len(vram) || int(dstRow+n) > len(vram) {
			continue
		}
		copy(vram[dstRow:dstRow+n], vram[srcRow:srcRow+n])
	}
	gs.mem.bumpGifCopy()
}

// hwregEmit64 feeds one 64-bit HWREG "qword" of pixel payload through the
// active transfer's bit-accumulator — spec.md §4.4 counts HWREG pixel
// density per 64-bit write (e.g. PSMCT32 is 2 px/qw), so each call here
// corresponds to one such unit, whether it arrives via a direct A+D HWREG
// register write or as one half of an IMAGE packet's 128-bit payload.
func (gs *GSFrontend) hwregEmit64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	gs.hwregTransferQword(buf[:])
}

// hwregTransferQword feeds one 64-bit unit of pixel payload through the
// active transfer's bit-accumulator, unpacking or repacking pixels per the
// destination/source pixel storage mode and advancing the raster cursor,
// wrapping rows at xferWidth and stopping once xferTotalPixels is reached.
func (gs *GSFrontend) hwregTransferQword(qword []byte) {
	if !gs.xferActive {
		return
	}
	psm := gs.dpsm()
	if !gs.xferDst {
		psm = gs.spsm()
	}
	bpp := bitsPerPixel(psm)

	bits := make([]byte, 0, len(gs.pixelCarry)+len(qword))
	bits = append(bits, gs.pixelCarry...)
	bits = append(bits, qword...)
	gs.pixelCarry = nil

	bitPos := 0
	for bitPos+bpp <= len(bits)*8 && gs.xferPixelsWritten < gs.xferTotalPixels {
		px := extractBits(bits, bitPos, bpp)
		bitPos += bpp
		gs.transferPixel(px, bpp)
	}

	// Carry byte-aligned leftovers only; a T4 carry landing on an odd nibble
	// is dropped rather than tracked sub-byte, a known gap in this format.
	if rem := len(bits)*8 - bitPos; rem > 0 && bitPos%8 == 0 {
		carryBytes := rem / 8
		start := bitPos / 8
		gs.pixelCarry = append(gs.pixelCarry, bits[start:start+carryBytes]...)
	}
}

// extractBits reads an n-bit (n<=32) little-endian bitfield starting at bit
// offset start from b.
func extractBits(b []byte, start, n int) uint32 {
	var v uint32
	for i := 0; i < n; i++ {
		bitIdx := start + i
		byteIdx := bitIdx / 8
		if byteIdx >= len(b) {
			break
		}
		bit := (b[byteIdx] >> uint(bitIdx%8)) & 1
		v |= uint32(bit) << uint(i)
	}
	return v
}

// transferPixel writes (or, for a readback, reads) one pixel at the
// current raster cursor and advances the cursor, wrapping rows at
// xferWidth per spec.md §4.4's HWREG streaming rule.
func (gs *GSFrontend) transferPixel(px uint32, bpp int) {
	x := gs.ssax() + gs.xferCol
	y := gs.ssay() + gs.xferRow
	if gs.xferDst {
		x = gs.dsax() + gs.xferCol
		y = gs.dsay() + gs.xferRow
	}

	vram := gs.mem.GSVRAM()
	if gs.xferDst {
		base := gs.dbp() + y*gs.dbw()*4
		writePixel(vram, base, x, gs.dpsm(), px)
		gs.mem.bumpGSWrite()
	} else {
		base := gs.sbp() + y*gs.sbw()*4
		v := readPixel(vram, base, x, gs.spsm())
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], v)
		gs.readback = append(gs.readback, buf[:bppBytes(bpp)]...)
	}

	gs.xferPixelsWritten++
	gs.xferCol++
	if gs.xferCol >= gs.xferWidth {
		gs.xferCol = 0
		gs.xferRow++
	}
}

func bppBytes(bpp int) int {
	if bpp < 8 {
		return 1
	}
	return bpp / 8
}

// writePixel stores one pixel of the given format at column x within the
// row starting at base.
func writePixel(vram []byte, base uint32, x uint32, psm uint32, v uint32) {
	switch psm {
	case psmCT32:
		off := base + x*4
		if int(off+4) <= len(vram) {
			binary.LittleEndian.PutUint32(vram[off:off+4], v)
		}
	case psmCT24:
		off := base + x*3
		if int(off+3) <= len(vram) {
			vram[off] = byte(v)
			vram[off+1] = byte(v >> 8)
			vram[off+2] = byte(v >> 16)
		}
	case psmCT16, 0x0A:
		off := base + x*2
		if int(off+2) <= len(vram) {
			binary.LittleEndian.PutUint16(vram[off:off+2], uint16(v))
		}
	case psmT8, 0x1B:
		off := base + x
		if int(off+1) <= len(vram) {
			vram[off] = byte(v)
		}
	case psmT4:
		off := base + x/2
		if int(off+1) <= len(vram) {
			if x%2 == 0 {
				vram[off] = (vram[off] &^ 0x0F) | byte(v&0xF)
			} else {
				vram[off] = (vram[off] &^ 0xF0) | byte((v&0xF)<<4)
			}
		}
	}
}

func readPixel(vram []byte, base uint32, x uint32, psm uint32) uint32 {
	switch psm {
	case psmCT32:
		off := base + x*4
		if int(off+4) <= len(vram) {
			return binary.LittleEndian.Uint32(vram[off : off+4])
		}
	case psmCT24:
		off := base + x*3
		if int(off+3) <= len(vram) {
			return uint32(vram[off]) | uint32(vram[off+1])<<8 | uint32(vram[off+2])<<16
		}
	case psmCT16, 0x0A:
		off := base + x*2
		if int(off+2) <= len(vram) {
			return uint32(binary.LittleEndian.Uint16(vram[off : off+2]))
		}
	case psmT8, 0x1B:
		off := base + x
		if int(off+1) <= len(vram) {
			return uint32(vram[off])
		}
	case psmT4:
		off := base + x/2
		if int(off+1) <= len(vram) {
			if x%2 == 0 {
				return uint32(vram[off] & 0xF)
			}
			return uint32(vram[off]>>4) & 0xF
		}
	}
	return 0
}

// ReadbackPixels returns the bytes accumulated by a completed
// local-to-host transfer; callers consume it via the SIGNAL path in a
// full implementation, kept here as a direct accessor for tests.
func (gs *GSFrontend) ReadbackPixels() []byte {
	return gs.readback
}

// FramebufferRGBA reads width*height pixels out of VRAM starting at the
// draw context's FBP/FBW/PSM and returns them as tightly packed RGBA8,
// for a presentation backend to blit directly. Context 0 is read since
// render targets in scope always draw through context 0.
func (gs *GSFrontend) FramebufferRGBA(width, height int) []byte {
	vram := gs.mem.GSVRAM()
	c := gs.ctx[0]
	base := c.fbp // already a byte address, see loadFrame
	stride := c.fbw // already in pixels, see loadFrame
	out := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		rowBase := base + uint32(y)*stride*4 // same 4-byte row stride transferPixel writes with
		for x := 0; x < width; x++ {
			px := readPixel(vram, rowBase, uint32(x), c.psm)
			o := (y*width + x) * 4
			switch c.psm {
			case psmCT24:
				out[o] = byte(px)
				out[o+1] = byte(px >> 8)
				out[o+2] = byte(px >> 16)
				out[o+3] = 0xFF
			case psmCT16:
				out[o] = byte(expand5to8(px & 0x1F))
				out[o+1] = byte(expand5to8((px >> 5) & 0x1F))
				out[o+2] = byte(expand5to8((px >> 10) & 0x1F))
				out[o+3] = 0xFF
			default: // psmCT32
				out[o] = byte(px)
				out[o+1] = byte(px >> 8)
				out[o+2] = byte(px >> 16)
				out[o+3] = byte(px >> 24)
			}
		}
	}
	return out
}
