// ps2_gif_arbiter.go - GIF path arbiter (PATH1/PATH2/PATH3 priority)

/*
The arbiter orders packets submitted on PATH1 (VU1 XGKICK), PATH2 (VIF1
DIRECT/DIRECTHL) and PATH3 (GIF DMA channel 2) by ascending path id,
stable within a path by submission order, per spec.md §4.4. MSKPATH3
queueing redirects PATH3 submissions into a side FIFO while the mask is
set; clearing the mask flushes that FIFO, in order, before further
drains. A PATH2 packet stalls behind any pending PATH3 IMAGE packet
until that packet has been dispatched. Submit does not tell DIRECT from
DIRECTHL (the VIF1 parser submits both as plain PATH2 data), so packets
of both kinds stall.
*/

package main

import "encoding/binary"

type pathID int

const (
	pathGIF1 pathID = 1 // VU1 XGKICK
	pathGIF2 pathID = 2 // VIF1 DIRECT/DIRECTHL
	pathGIF3 pathID = 3 // GIF DMA channel 2
)

type gifPacket struct {
	path        pathID
	data        []byte
	directHL    bool
	path3Image  bool
}

// GIFArbiter implements the PacketSink contract and feeds ordered packets
// to a GS front-end processor function.
type GIFArbiter struct {
	queue  []gifPacket
	masked bool
	maskedFIFO []gifPacket

	process func(path pathID, data []byte)
}

// NewGIFArbiter constructs an arbiter that dispatches drained packets to process.
func NewGIFArbiter(process func(path pathID, data []byte)) *GIFArbiter {
	return &GIFArbiter{process: process}
}

// Submit queues a packet for the named path. PATH3 submissions are
// redirected to the masked FIFO while MSKPATH3 is in effect. Every PATH2
// packet, DIRECT and DIRECTHL alike, is flagged directHL.
func (a *GIFArbiter) Submit(path pathID, data []byte) {
	pkt := gifPacket{path: path, data: data}
	if path == pathGIF3 {
		pkt.path3Image = isGIFTagImagePacket(data)
	}
	if path == pathGIF2 {
		pkt.directHL = true
	}
	if a.masked && path == pathGIF3 {
		a.maskedFIFO = append(a.maskedFIFO, pkt)
		return
	}
	a.queue = append(a.queue, pkt)
}

// SetPath3Mask toggles MSKPATH3; clearing it flushes the masked FIFO in order.
func (a *GIFArbiter) SetPath3Mask(masked bool) {
	wasMasked := a.masked
	a.masked = masked
	if wasMasked && !masked {
		a.queue = append(a.queue, a.maskedFIFO...)
		a.maskedFIFO = nil
	}
}

// hasPendingPath3Image reports whether any queued packet is a PATH3 IMAGE
// packet, used to stall a DIRECTHL submission behind it.
func (a *GIFArbiter) hasPendingPath3Image() bool {
	for _, p := range a.queue {
		if p.path == pathGIF3 && p.path3Image {
			return true
		}
	}
	return false
}

// Drain dispatches queued packets to process by path id ascending, in
// submission order within a path, until the queue is empty. A directHL
// (PATH2) packet is passed over while a PATH3 IMAGE packet is queued, so it goes
// out later in the same drain, once no PATH3 IMAGE packet is left.
func (a *GIFArbiter) Drain() {
	for {
		idx := -1
		best := pathID(1 << 30)
		for i, p := range a.queue {
			if p.directHL && a.hasPendingPath3Image() {
				continue
			}
			if p.path < best {
				best = p.path
				idx = i
			}
		}
		if idx == -1 {
			return
		}
		pkt := a.queue[idx]
		a.queue = append(a.queue[:idx], a.queue[idx+1:]...)
		a.process(pkt.path, pkt.data)
	}
}

// isGIFTagImagePacket reports whether the packet's first GIFtag has FLG=2 (IMAGE).
func isGIFTagImagePacket(data []byte) bool {
	if len(data) < 16 {
		return false
	}
	lo := binary.LittleEndian.Uint64(data[0:8])
	flg := (lo >> 58) & 0x3
	return flg == 2
}
