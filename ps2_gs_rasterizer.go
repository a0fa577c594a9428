// ps2_gs_rasterizer.go - double-buffered primitive bridge between the GS
// front-end and a host video backend.

/*
Primitives assembled by the GS front-end are pushed into a back buffer;
the GS front-end swaps it to the front on FINISH, and Presenter polls the
generation counter to decide when to present. The swap is guarded by a
mutex and an atomic generation counter so a reader calling Frame
mid-swap never observes a half-written slice, matching the teacher's
double-buffered framebuffer convention in video_chip.go.
*/

package main

import (
	"sync"
	"sync/atomic"
)

type primitiveKind int

const (
	primPoint primitiveKind = iota
	primLine
	primLineStrip
	primTriangle
	primTriangleStrip
	primTriangleFan
	primSprite
)

// primVertex is a flattened, screen-space vertex ready for host rendering.
type primVertex struct {
	X, Y, Z    float64
	R, G, B, A uint8
	U, V       float64
}

// Primitive is one kicked draw, carrying up to 4 vertex slots (enough for
// a QUAD-style sprite pair plus triangle/line/point shapes).
type Primitive struct {
	Kind     primitiveKind
	Vertices [4]primVertex
	NumVerts int
	TBP0     uint32
	TPSM     uint32
	FBP      uint32
	FBW      uint32
}

// RasterizerBridge double-buffers the frame's primitive list.
type RasterizerBridge struct {
	mu   sync.Mutex
	back []Primitive

	front []Primitive
	gen   atomic.Uint64
}

// NewRasterizerBridge constructs an empty bridge.
func NewRasterizerBridge() *RasterizerBridge {
	return &RasterizerBridge{}
}

// Push appends a primitive to the back buffer, called from the GS front-end
// as it kicks primitives during packet decode.
func (b *RasterizerBridge) Push(p Primitive) {
	b.mu.Lock()
	b.back = append(b.back, p)
	b.mu.Unlock()
}

// Swap publishes the back buffer as the new front buffer and clears the
// back buffer for the next frame. Called by the GS front end on FINISH,
// marking a kicked primitive batch complete.
func (b *RasterizerBridge) Swap() {
	b.mu.Lock()
	b.front = b.back
	b.back = nil
	b.mu.Unlock()
	b.gen.Add(1)
}

// Frame returns the current front buffer snapshot for a host backend to
// render; the returned slice must not be mutated.
func (b *RasterizerBridge) Frame() []Primitive {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.front
}

// Generation reports the swap count, letting a backend skip redundant redraws.
func (b *RasterizerBridge) Generation() uint64 {
	return b.gen.Load()
}
