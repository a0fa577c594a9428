package main

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildGifTagBytes(nloop uint32, eop bool, flg uint32, nreg uint32, regs []uint32) []byte {
	var lo uint64
	lo |= uint64(nloop) & 0x7FFF
	if eop {
		lo |= 1 << 15
	}
	lo |= (uint64(flg) & 0x3) << 58
	nregField := nreg
	if nregField == 16 {
		nregField = 0
	}
	lo |= (uint64(nregField) & 0xF) << 60

	var hi uint64
	for i, r := range regs {
		if i >= 16 {
			break
		}
		hi |= (uint64(r) & 0xF) << uint(i*4)
	}

	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], lo)
	binary.LittleEndian.PutUint64(buf[8:16], hi)
	return buf
}

func packedADEntry(value uint64, reg byte) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], value)
	buf[8] = reg
	return buf
}

// TestGSPackedADWritesPrivilegedRegisters drives scenario 1: a PACKED
// packet with two A+D entries addressed to DISPFB1 (0x59) and DISPLAY1
// (0x5A) must land exactly in GS.dispfb1/GS.display1.
func TestGSPackedADWritesPrivilegedRegisters(t *testing.T) {
	mem := NewMemory()
	raster := NewRasterizerBridge()
	gs := NewGSFrontend(mem, raster)

	tag := buildGifTagBytes(2, true, 0, 1, []uint32{0x0E})
	entry1 := packedADEntry(0x0123456789ABCDEF, 0x59)
	entry2 := packedADEntry(0x1111222233334444, 0x5A)

	packet := append(append(append([]byte{}, tag...), entry1...), entry2...)
	gs.Process(pathGIF3, packet)

	if gs.dispfb1 != 0x0123456789ABCDEF {
		t.Fatalf("dispfb1 = 0x%016x, want 0x0123456789ABCDEF", gs.dispfb1)
	}
	if gs.display1 != 0x1111222233334444 {
		t.Fatalf("display1 = 0x%016x, want 0x1111222233334444", gs.display1)
	}
}

// TestGSREGLISTOddPaddingThenImage drives scenario 2: a REGLIST tag with
// an odd NLOOP*NREG pads one 64-bit unit before the next tag, and the
// following IMAGE tag's payload lands verbatim in VRAM at DBP=0.
func TestGSREGLISTOddPaddingThenImage(t *testing.T) {
	mem := NewMemory()
	raster := NewRasterizerBridge()
	gs := NewGSFrontend(mem, raster)

	// BITBLTBUF: DBP=0, DPSM=CT32; TRXREG 4x1; TRXDIR host->local.
	gs.bitbltbuf = 0
	gs.trxreg = 4 | (1 << 32)
	gs.trxdir = trxDirHostToLocal
	gs.beginTransfer()

	reglistTag := buildGifTagBytes(1, false, 1, 1, []uint32{0x00}) // PRIM
	primDesc := make([]byte, 8)
	binary.LittleEndian.PutUint64(primDesc, 0)
	pad := make([]byte, 8)

	imageTag := buildGifTagBytes(1, true, 2, 0, nil)
	payload := fillSequential(0x31, 16)

	packet := append(append(append(append(append([]byte{}, reglistTag...), primDesc...), pad...), imageTag...), payload...)
	gs.Process(pathGIF3, packet)

	vram := gs.mem.GSVRAM()
	if !bytes.Equal(vram[0:16], payload) {
		t.Fatalf("VRAM[0:16] = %x, want %x", vram[0:16], payload)
	}
}

// TestGSHostToLocalPSMCT32Transfer drives invariant 4: a W*H PSMCT32
// host->local transfer writes exactly W*H pixels, each landing at
// dbp*256 + row*dbw*256 + col*4.
func TestGSHostToLocalPSMCT32Transfer(t *testing.T) {
	mem := NewMemory()
	raster := NewRasterizerBridge()
	gs := NewGSFrontend(mem, raster)

	const width, height = 4, 2
	// DBP=0 (raw field 0), DBW=1 (raw field, i.e. 64 px stride), DPSM=CT32.
	gs.bitbltbuf = uint64(1) << 48
	gs.trxreg = uint64(width) | uint64(height)<<32
	gs.trxdir = trxDirHostToLocal
	gs.beginTransfer()

	pixels := make([]uint32, width*height)
	for i := range pixels {
		pixels[i] = 0x10203040 + uint32(i)
	}
	for i := 0; i+1 < len(pixels); i += 2 {
		qword := uint64(pixels[i]) | uint64(pixels[i+1])<<32
		gs.hwregEmit64(qword)
	}

	if gs.xferPixelsWritten != width*height {
		t.Fatalf("pixels_written = %d, want %d", gs.xferPixelsWritten, width*height)
	}

	vram := gs.mem.GSVRAM()
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			addr := gs.dbp() + uint32(row)*gs.dbw()*4 + uint32(col)*4
			got := binary.LittleEndian.Uint32(vram[addr : addr+4])
			want := pixels[row*width+col]
			if got != want {
				t.Fatalf("pixel(row=%d,col=%d) = 0x%08x, want 0x%08x", row, col, got, want)
			}
		}
	}
}

// TestGSTRXDIRLocalToLocalCopyIsBitIdentical drives invariant 6: a
// TRXDIR=2 PSMCT32 copy reproduces the source region bit-for-bit at the
// destination.
func TestGSTRXDIRLocalToLocalCopyIsBitIdentical(t *testing.T) {
	mem := NewMemory()
	raster := NewRasterizerBridge()
	gs := NewGSFrontend(mem, raster)

	// SBP raw=0, SBW raw=1, SPSM=CT32; DBP raw=1 (->256), DBW raw=1, DPSM=CT32.
	gs.bitbltbuf = (uint64(1) << 16) | (uint64(1) << 32) | (uint64(1) << 48)
	gs.trxreg = 4 | (1 << 32)
	gs.trxpos = 0

	src := fillSequential(0xA0, 16)
	vram := gs.mem.GSVRAM()
	copy(vram[0:16], src)

	gs.trxdir = trxDirLocalToLocal
	gs.beginTransfer()

	dstBase := gs.dbp()
	if !bytes.Equal(vram[dstBase:dstBase+16], src) {
		t.Fatalf("copied region = %x, want %x", vram[dstBase:dstBase+16], src)
	}
}

// TestGSFramebufferRGBAReadsCT32 checks that FramebufferRGBA reads the
// same pixels a PSMCT32 host->local transfer just wrote.
func TestGSFramebufferRGBAReadsCT32(t *testing.T) {
	mem := NewMemory()
	raster := NewRasterizerBridge()
	gs := NewGSFrontend(mem, raster)

	gs.ctx[0].fbp = 0
	gs.ctx[0].fbw = 64
	gs.ctx[0].psm = psmCT32

	vram := gs.mem.GSVRAM()
	binary.LittleEndian.PutUint32(vram[0:4], 0x11223344)
	binary.LittleEndian.PutUint32(vram[4:8], 0x55667788)

	out := gs.FramebufferRGBA(2, 1)
	if len(out) != 8 {
		t.Fatalf("len(out) = %d, want 8", len(out))
	}
	if binary.LittleEndian.Uint32(out[0:4]) != 0x11223344 {
		t.Fatalf("pixel0 = %x, want 0x11223344", out[0:4])
	}
	if binary.LittleEndian.Uint32(out[4:8]) != 0x55667788 {
		t.Fatalf("pixel1 = %x, want 0x55667788", out[4:8])
	}
}
