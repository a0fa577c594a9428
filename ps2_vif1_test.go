package main

import (
	"bytes"
	"testing"
)

func leWord(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// TestVIF1STCYCLSkipModeCadence drives scenario 3: STCYCL WL=1 CL=3
// followed by an UNPACK V4-32 NUM=2 ADDR=0 must land the first vector at
// VU1_DATA[0], skip two qwords untouched, and land the second vector at
// VU1_DATA[3*16].
func TestVIF1STCYCLSkipModeCadence(t *testing.T) {
	mem := NewMemory()
	arb := NewGIFArbiter(func(path pathID, data []byte) {})
	vif := NewVIF1Parser(mem, arb)

	stcycl := leWord((0x01 << 24) | 0x0103) // WL=1, CL=3
	unpack := leWord((0x6C << 24) | (2 << 16))

	v1 := []byte{}
	for _, w := range []uint32{0x11111111, 0x22222222, 0x33333333, 0x44444444} {
		v1 = append(v1, leWord(w)...)
	}
	v2 := []byte{}
	for _, w := range []uint32{0x55555555, 0x66666666, 0x77777777, 0x88888888} {
		v2 = append(v2, leWord(w)...)
	}

	stream := append(append(append(append([]byte{}, stcycl...), unpack...), v1...), v2...)
	vif.Process(stream)

	data := mem.VU1Data()
	if !bytes.Equal(data[0:16], v1) {
		t.Fatalf("VU1_DATA[0:16] = %x, want %x", data[0:16], v1)
	}
	if !bytes.Equal(data[48:64], v2) {
		t.Fatalf("VU1_DATA[3*16:4*16] = %x, want %x", data[48:64], v2)
	}
	for _, off := range []int{16, 32} {
		zero := make([]byte, 16)
		if !bytes.Equal(data[off:off+16], zero) {
			t.Fatalf("VU1_DATA[%d:%d] should be untouched, got %x", off, off+16, data[off:off+16])
		}
	}
}

// TestVIF1DirectSubmitsToPATH2 checks that a DIRECT command forwards its
// payload to the GIF arbiter's PATH2.
func TestVIF1DirectSubmitsToPATH2(t *testing.T) {
	var gotPath pathID
	var gotData []byte
	arb := NewGIFArbiter(func(path pathID, data []byte) {
		gotPath, gotData = path, data
	})
	mem := NewMemory()
	vif := NewVIF1Parser(mem, arb)

	cmd := leWord((0x50 << 24) | (1 << 16)) // DIRECT, NUM=1 (one qword)
	payload := fillSequential(0x01, 16)
	stream := append(append([]byte{}, cmd...), payload...)

	vif.Process(stream)
	arb.Drain()

	if gotPath != pathGIF2 {
		t.Fatalf("path = %d, want pathGIF2", gotPath)
	}
	if !bytes.Equal(gotData, payload) {
		t.Fatalf("DIRECT payload = %x, want %x", gotData, payload)
	}
}

// recordingVu1Start is a Vu1Start test double that records the last Mscal
// dispatch it received.
type recordingVu1Start struct {
	gotPC, gotITOP uint32
}

func (r *recordingVu1Start) Mscal(pc, itop uint32) { r.gotPC, r.gotITOP = pc, itop }

// TestVIF1MSCALInvokesCallback checks that MSCAL dispatches the wired
// Vu1Start with the expected start PC (imm*8) and current ITOP.
func TestVIF1MSCALInvokesCallback(t *testing.T) {
	mem := NewMemory()
	arb := NewGIFArbiter(func(path pathID, data []byte) {})
	vif := NewVIF1Parser(mem, arb)

	vu := &recordingVu1Start{}
	vif.SetVu1Start(vu)

	itopCmd := leWord((0x04 << 24) | 5) // ITOP imm=5
	mscalCmd := leWord((0x14 << 24) | 3) // MSCAL imm=3 -> startPC = 3*8 = 24
	stream := append(append([]byte{}, itopCmd...), mscalCmd...)
	vif.Process(stream)

	if vu.gotPC != 24 {
		t.Fatalf("MSCAL startPC = %d, want 24", vu.gotPC)
	}
	if vu.gotITOP != 5 {
		t.Fatalf("MSCAL itop = %d, want 5", vu.gotITOP)
	}
}
