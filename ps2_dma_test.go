package main

import (
	"bytes"
	"testing"
)

type capturingGIFSink struct {
	calls [][]byte
}

func (c *capturingGIFSink) Submit(path pathID, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	c.calls = append(c.calls, cp)
}

type noopVIF1Sink struct{ calls int }

func (n *noopVIF1Sink) Process(data []byte) { n.calls++ }

func fillSequential(start, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(start + i)
	}
	return b
}

func chanBase(ch int) uint32 { return dmaChannelBaseAddr(ch) }

// TestDMAChainCallRetEnd drives a CALL/RET/END chain and checks that the
// three dispatched payloads concatenate to the 48-byte sequence
// 0x11..0x20, 0x22..0x31, 0x33..0x42.
func TestDMAChainCallRetEnd(t *testing.T) {
	mem := NewMemory()
	gif := &capturingGIFSink{}
	vif := &noopVIF1Sink{}
	dma := NewDMAEngine(mem, gif, vif)

	const a0 = uint32(0x1000)
	const a1 = uint32(0x2000)

	callTag := make([]byte, 16)
	callTag[3] = 0x50 // id=5 (CALL) in bits 28-30 of word0, qwc=1
	callTag[0] = 0x01
	putLE32(callTag[4:8], a1)
	mem.WriteBytes(a0, callTag)
	mem.WriteBytes(a0+16, fillSequential(0x11, 16))

	retTag := make([]byte, 16)
	retTag[3] = 0x60 // id=6 (RET), qwc=1
	retTag[0] = 0x01
	mem.WriteBytes(a1, retTag)
	mem.WriteBytes(a1+16, fillSequential(0x22, 16))

	endTag := make([]byte, 16)
	endTag[3] = 0x70 // id=7 (END), qwc=1
	endTag[0] = 0x01
	mem.WriteBytes(a0+32, endTag)
	mem.WriteBytes(a0+48, fillSequential(0x33, 16))

	if err := mem.Write32(regDCTRL, 1); err != nil {
		t.Fatalf("enable DMAE: %v", err)
	}

	base := chanBase(dmaGIFChannel)
	if err := mem.Write32(base+dmaTadr, a0); err != nil {
		t.Fatalf("write TADR: %v", err)
	}
	if err := mem.Write32(base+dmaChcr, (1<<8)|(1<<2)); err != nil {
		t.Fatalf("write CHCR: %v", err)
	}

	dma.ProcessPendingTransfers()

	var got []byte
	for _, c := range gif.calls {
		got = append(got, c...)
	}

	want := append(append(fillSequential(0x11, 16), fillSequential(0x22, 16)...), fillSequential(0x33, 16)...)
	if !bytes.Equal(got, want) {
		t.Fatalf("chain packet = %x, want %x", got, want)
	}
}

// TestDMAEGateRequiresEnableAndSTREdge checks that STR=1 while DMAE=0
// still bumps dmaStartCount but drains nothing, and that only a later
// STR rising edge with DMAE=1 actually produces a packet.
func TestDMAEGateRequiresEnableAndSTREdge(t *testing.T) {
	mem := NewMemory()
	gif := &capturingGIFSink{}
	vif := &noopVIF1Sink{}
	dma := NewDMAEngine(mem, gif, vif)

	const srcAddr = uint32(0x4000)
	payload := fillSequential(0xA0, 16)
	mem.WriteBytes(srcAddr, payload)

	base := chanBase(dmaGIFChannel)
	if err := mem.Write32(base+dmaMadr, srcAddr); err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(base+dmaQwc, 1); err != nil {
		t.Fatal(err)
	}

	// DMAE still disabled: STR=1 must still count as a start...
	if err := mem.Write32(base+dmaChcr, 1<<8); err != nil {
		t.Fatal(err)
	}
	if got := mem.DmaStartCount(); got != 1 {
		t.Fatalf("dmaStartCount after gated STR = %d, want 1", got)
	}

	// ...but must not drain while DMAE is 0.
	dma.ProcessPendingTransfers()
	if len(gif.calls) != 0 {
		t.Fatalf("expected no packets while DMAE disabled, got %d", len(gif.calls))
	}

	// Enable DMAE, then force a fresh STR rising edge.
	if err := mem.Write32(regDCTRL, 1); err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(base+dmaChcr, 0); err != nil {
		t.Fatal(err)
	}
	if err := mem.Write32(base+dmaChcr, 1<<8); err != nil {
		t.Fatal(err)
	}
	if got := mem.DmaStartCount(); got != 2 {
		t.Fatalf("dmaStartCount after re-armed STR = %d, want 2", got)
	}

	dma.ProcessPendingTransfers()
	if len(gif.calls) != 1 {
		t.Fatalf("expected exactly one drained packet, got %d", len(gif.calls))
	}
	if !bytes.Equal(gif.calls[0], payload) {
		t.Fatalf("drained packet = %x, want %x", gif.calls[0], payload)
	}
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
