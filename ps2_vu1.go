// ps2_vu1.go - VU1 micro-coprocessor interpreter

/*
VU1 executes 64-bit bundles fetched from its 16KiB code memory: the lower
32 bits drive the integer/control/memory pipe, the upper 32 bits drive the
float arithmetic pipe, per spec.md §4.5. Instruction encoding here is a
compact, internally-consistent scheme (the distilled spec names required
opcodes and their behaviour but not a bit-exact ISA encoding) rather than
real VU machine code; DESIGN.md records that choice.

Dual-issue semantics: both pipes execute from the same bundle each step,
except when LOI (lower[31]) redirects the upper word into the I scalar
instead of running it as an instruction. The E-bit (upper[30]) marks the
last bundle of a microprogram; one further bundle still executes after it.
*/

package main

import (
	"encoding/binary"
	"math"
)

const vu1CodeSize = 16 * 1024
const vu1DataSize = 16 * 1024

type VU1 struct {
	mem *Memory
	gif PacketSink

	vf [32][4]float32
	vi [16]uint16
	acc [4]float32
	q, p, i float32

	pc     uint32
	mac    uint32
	clip   uint32
	status uint32
	itop   uint32
	xitop  uint32
	ebit   bool

	cycleBudget int
}

// NewVU1 constructs the interpreter bound to guest memory and the GIF arbiter.
func NewVU1(mem *Memory, gif PacketSink) *VU1 {
	return &VU1{mem: mem, gif: gif, cycleBudget: 100000}
}

// SetCycleBudget caps how many bundles a single Mscal dispatch may run for.
func (vu *VU1) SetCycleBudget(n int) { vu.cycleBudget = n }

// Mscal implements Vu1Start, letting VIF1 hand MSCAL/MSCALF straight to the
// VU1 interpreter without a raw function pointer.
func (vu *VU1) Mscal(pc, itop uint32) {
	vu.Execute(pc, itop, vu.cycleBudget)
}

// Execute resets EBIT, clamps VF[0] to its hardwired value, sets ITOP and
// PC, then runs for at most maxCycles bundles.
func (vu *VU1) Execute(startPC, itop uint32, maxCycles int) {
	vu.ebit = false
	vu.pc = startPC % vu1CodeSize
	vu.itop = itop
	vu.vf[0] = [4]float32{0, 0, 0, 1}
	vu.run(maxCycles)
}

// Resume behaves like Execute but preserves PC across calls.
func (vu *VU1) Resume(itop uint32, maxCycles int) {
	vu.itop = itop
	vu.run(maxCycles)
}

func (vu *VU1) run(maxCycles int) {
	code := vu.mem.VU1Code()
	eBitPending := false
	for cyc := 0; cyc < maxCycles; cyc++ {
		if int(vu.pc)+8 > len(code) {
			return
		}
		lower := binary.LittleEndian.Uint32(code[vu.pc : vu.pc+4])
		upper := binary.LittleEndian.Uint32(code[vu.pc+4 : vu.pc+8])
		eBit := upper&(1<<30) != 0
		loi := lower&(1<<31) != 0

		if loi {
			vu.i = math.Float32frombits(upper)
		} else {
			vu.execUpper(upper)
		}
		target, branched := vu.execLower(lower)

		vu.vf[0] = [4]float32{0, 0, 0, 1}
		vu.vi[0] = 0

		if eBitPending {
			vu.ebit = true
			return
		}
		if eBit {
			eBitPending = true
		}

		if branched {
			vu.pc = target % vu1CodeSize
		} else {
			vu.pc = (vu.pc + 8) % vu1CodeSize
		}
	}
}

// Lower-pipe opcodes.
const (
	lopNOP = iota
	lopB
	lopBAL
	lopJR
	lopJALR
	lopIADD
	lopISUB
	lopIADDI
	lopIADDIU
	lopLQ
	lopSQ
	lopLQI
	lopSQI
	lopXTOP
	lopXITOP
	lopMTIR
	lopMFIR
	lopWAITQ
	lopDIV
	lopRSQRT
	lopXGKICK
)

func decodeLower(word uint32) (op uint32, dst, src1 uint32, imm16 uint32) {
	op = (word >> 24) & 0x7F
	dst = (word >> 20) & 0xF
	src1 = (word >> 16) & 0xF
	imm16 = word & 0xFFFF
	return
}

// execLower runs the lower-pipe instruction and reports a branch target
// (in code-memory byte offset) when control flow changed.
func (vu *VU1) execLower(word uint32) (target uint32, branched bool) {
	op, dst, src1, imm16 := decodeLower(word)
	src2 := imm16 & 0xF

	switch op {
	case lopNOP:
	case lopB:
		return vu.branchTarget(imm16), true
	case lopBAL:
		vu.vi[dst] = uint16((vu.pc + 8) / 8)
		return vu.branchTarget(imm16), true
	case lopJR:
		return uint32(vu.vi[src1]) * 8, true
	case lopJALR:
		vu.vi[dst] = uint16((vu.pc + 8) / 8)
		return uint32(vu.vi[src1]) * 8, true
	case lopIADD:
		vu.vi[dst] = vu.vi[src1] + vu.vi[src2]
	case lopISUB:
		vu.vi[dst] = vu.vi[src1] - vu.vi[src2]
	case lopIADDI:
		vu.vi[dst] = uint16(int32(vu.vi[src1]) + int32(int16(imm16)))
	case lopIADDIU:
		vu.vi[dst] = vu.vi[src1] + uint16(imm16)
	case lopLQ:
		vu.loadQuad(dst, src1, int16(imm16))
	case lopSQ:
		vu.storeQuad(dst, src1, int16(imm16))
	case lopLQI:
		vu.loadQuad(dst, src1, 0)
		vu.vi[src1]++
	case lopSQI:
		vu.storeQuad(dst, src1, 0)
		vu.vi[src1]++
	case lopXTOP:
		vu.vi[dst] = uint16(vu.itop)
	case lopXITOP:
		vu.vi[dst] = uint16(vu.xitop)
	case lopMTIR:
		vu.vi[dst] = uint16(math.Float32bits(vu.vf[src1][0]))
	case lopMFIR:
		vu.vf[dst][0] = float32(int16(vu.vi[src1]))
	case lopWAITQ:
		// Q is computed synchronously by DIV/RSQRT in this interpreter.
	case lopDIV:
		if vu.vf[src1][0] == 0 {
			vu.q = 0
		} else {
			vu.q = vu.vf[dst][0] / vu.vf[src1][0]
		}
	case lopRSQRT:
		denomSq := vu.vf[src1][0]
		if denomSq <= 0 {
			vu.q = 0
		} else {
			vu.q = vu.vf[dst][0] / float32(math.Sqrt(float64(denomSq)))
		}
	case lopXGKICK:
		vu.doXGKick(src1)
	}
	return 0, false
}

// Upper-pipe opcodes.
const (
	uopADD = iota
	uopADDbc
	uopSUB
	uopSUBbc
	uopMUL
	uopMULbc
	uopMADD
	uopMADDbc
	uopMSUB
	uopMSUBbc
	uopMAX
	uopMAXbc
	uopMINI
	uopMINIbc
	uopABS
	uopFTOI0
	uopFTOI4
	uopFTOI12
	uopFTOI15
	uopITOF0
	uopITOF4
	uopITOF12
	uopITOF15
	uopOPMULA
	uopOPMSUB
	uopCLIP
)

func decodeUpper(word uint32) (op, mask, fd, fs, ft, bc uint32) {
	op = (word >> 25) & 0x1F
	mask = (word >> 21) & 0xF
	fd = (word >> 16) & 0x1F
	fs = (word >> 11) & 0x1F
	ft = (word >> 6) & 0x1F
	bc = (word >> 4) & 0x3
	return
}

func (vu *VU1) execUpper(word uint32) {
	op, mask, fd, fs, ft, bc := decodeUpper(word)

	lane := func(i int) bool { return mask&(1<<uint(3-i)) != 0 }

	switch op {
	case uopADD:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = vu.vf[fs][l] + vu.vf[ft][l]
			}
		}
	case uopADDbc:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = vu.vf[fs][l] + vu.vf[ft][bc]
			}
		}
	case uopSUB:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = vu.vf[fs][l] - vu.vf[ft][l]
			}
		}
	case uopSUBbc:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = vu.vf[fs][l] - vu.vf[ft][bc]
			}
		}
	case uopMUL:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = vu.vf[fs][l] * vu.vf[ft][l]
			}
		}
	case uopMULbc:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = vu.vf[fs][l] * vu.vf[ft][bc]
			}
		}
	case uopMADD:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.acc[l] += vu.vf[fs][l] * vu.vf[ft][l]
				vu.vf[fd][l] = vu.acc[l]
			}
		}
	case uopMADDbc:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.acc[l] += vu.vf[fs][l] * vu.vf[ft][bc]
				vu.vf[fd][l] = vu.acc[l]
			}
		}
	case uopMSUB:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.acc[l] -= vu.vf[fs][l] * vu.vf[ft][l]
				vu.vf[fd][l] = vu.acc[l]
			}
		}
	case uopMSUBbc:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.acc[l] -= vu.vf[fs][l] * vu.vf[ft][bc]
				vu.vf[fd][l] = vu.acc[l]
			}
		}
	case uopMAX:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = maxF32(vu.vf[fs][l], vu.vf[ft][l])
			}
		}
	case uopMAXbc:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = maxF32(vu.vf[fs][l], vu.vf[ft][bc])
			}
		}
	case uopMINI:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = minF32(vu.vf[fs][l], vu.vf[ft][l])
			}
		}
	case uopMINIbc:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = minF32(vu.vf[fs][l], vu.vf[ft][bc])
			}
		}
	case uopABS:
		for l := 0; l < 4; l++ {
			if lane(l) {
				vu.vf[fd][l] = float32(math.Abs(float64(vu.vf[fs][l])))
			}
		}
	case uopFTOI0, uopFTOI4, uopFTOI12, uopFTOI15:
		scale := ftoiScale(op)
		for l := 0; l < 4; l++ {
			if lane(l) {
				ival := int32(vu.vf[fs][l] * scale)
				vu.vf[fd][l] = math.Float32frombits(uint32(ival))
			}
		}
	case uopITOF0, uopITOF4, uopITOF12, uopITOF15:
		scale := itofScale(op)
		for l := 0; l < 4; l++ {
			if lane(l) {
				ival := int32(math.Float32bits(vu.vf[fs][l]))
				vu.vf[fd][l] = float32(ival) / scale
			}
		}
	case uopOPMULA:
		vu.acc[0] = vu.vf[fs][1] * vu.vf[ft][2]
		vu.acc[1] = vu.vf[fs][2] * vu.vf[ft][0]
		vu.acc[2] = vu.vf[fs][0] * vu.vf[ft][1]
		vu.acc[3] = 0
	case uopOPMSUB:
		vu.vf[fd][0] = vu.vf[ft][1]*vu.vf[fs][2] - vu.acc[0]
		vu.vf[fd][1] = vu.vf[ft][2]*vu.vf[fs][0] - vu.acc[1]
		vu.vf[fd][2] = vu.vf[ft][0]*vu.vf[fs][1] - vu.acc[2]
		vu.vf[fd][3] = 0
	case uopCLIP:
		vu.doClip(fs)
	}
}

func maxF32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minF32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func ftoiScale(op uint32) float32 {
	switch op {
	case uopFTOI4:
		return 16
	case uopFTOI12:
		return 4096
	case uopFTOI15:
		return 32768
	}
	return 1
}

func itofScale(op uint32) float32 {
	switch op {
	case uopITOF4:
		return 16
	case uopITOF12:
		return 4096
	case uopITOF15:
		return 32768
	}
	return 1
}

// doClip compares fs's x/y/z against ±fs.w and shifts the 6-bit judgement
// into the CLIP accumulator, per the VU ISA's clip-test convention.
func (vu *VU1) doClip(fs uint32) {
	w := vu.vf[fs][3]
	var judge uint32
	if vu.vf[fs][0] > w {
		judge |= 1 << 0
	}
	if vu.vf[fs][0] < -w {
		judge |= 1 << 1
	}
	if vu.vf[fs][1] > w {
		judge |= 1 << 2
	}
	if vu.vf[fs][1] < -w {
		judge |= 1 << 3
	}
	if vu.vf[fs][2] > w {
		judge |= 1 << 4
	}
	if vu.vf[fs][2] < -w {
		judge |= 1 << 5
	}
	vu.clip = (vu.clip << 6) | judge
}

func (vu *VU1) branchTarget(imm16 uint32) uint32 {
	offset := int32(int16(imm16)) * 8
	return uint32(int32(vu.pc) + 8 + offset)
}

func (vu *VU1) loadQuad(vfIdx, viIdx uint32, imm int16) {
	data := vu.mem.VU1Data()
	off := (int(vu.vi[viIdx]) + int(imm)) * 16
	off = ((off % vu1DataSize) + vu1DataSize) % vu1DataSize
	if off+16 > len(data) {
		return
	}
	for lane := 0; lane < 4; lane++ {
		bits := binary.LittleEndian.Uint32(data[off+lane*4 : off+lane*4+4])
		vu.vf[vfIdx][lane] = math.Float32frombits(bits)
	}
}

func (vu *VU1) storeQuad(vfIdx, viIdx uint32, imm int16) {
	data := vu.mem.VU1Data()
	off := (int(vu.vi[viIdx]) + int(imm)) * 16
	off = ((off % vu1DataSize) + vu1DataSize) % vu1DataSize
	if off+16 > len(data) {
		return
	}
	for lane := 0; lane < 4; lane++ {
		bits := math.Float32bits(vu.vf[vfIdx][lane])
		binary.LittleEndian.PutUint32(data[off+lane*4:off+lane*4+4], bits)
	}
}

// doXGKick reads VU1 data memory starting at VI[is]*16 as a GIF packet and
// submits it whole on PATH1, honouring 16KiB wraparound per spec.md §4.5.
func (vu *VU1) doXGKick(isReg uint32) {
	data := vu.mem.VU1Data()
	pos := (int(vu.vi[isReg]) * 16) % vu1DataSize

	packet := make([]byte, 0, 256)
	for {
		tagBytes := wrappedRead(data, pos, 16)
		packet = append(packet, tagBytes...)
		tag := decodeGIFTag(tagBytes)
		pos = (pos + 16) % vu1DataSize

		for q := 0; q < gifPacketQwordsFor(tag); q++ {
			packet = append(packet, wrappedRead(data, pos, 16)...)
			pos = (pos + 16) % vu1DataSize
		}

		if tag.eop || len(packet) > vu1DataSize*2 {
			break
		}
	}

	if vu.gif != nil {
		vu.gif.Submit(pathGIF1, packet)
	}
}

// gifPacketQwordsFor returns the number of payload qwords a GIFtag's
// NLOOP/FLG/NREG describe, matching the decode loop's per-format sizing.
func gifPacketQwordsFor(tag gifTag) int {
	switch tag.flg {
	case 0: // PACKED: one qword per descriptor
		return int(tag.nloop) * int(tag.nreg)
	case 1: // REGLIST: two descriptors per qword
		total := int(tag.nreg) * int(tag.nloop)
		return (total + 1) / 2
	case 2: // IMAGE: nloop qwords directly
		return int(tag.nloop)
	}
	return 0
}

// wrappedRead copies n bytes from data starting at offset off, wrapping
// modulo len(data) as VU1 data memory addressing does.
func wrappedRead(data []byte, off, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = data[(off+i)%len(data)]
	}
	return out
}
