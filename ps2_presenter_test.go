package main

import "testing"

type fakeVideoOutput struct {
	cfg      DisplayConfig
	started  bool
	frames   [][]byte
	vsyncCnt uint64
}

func (f *fakeVideoOutput) Start() error                         { f.started = true; return nil }
func (f *fakeVideoOutput) Stop() error                           { f.started = false; return nil }
func (f *fakeVideoOutput) Close() error                          { return nil }
func (f *fakeVideoOutput) IsStarted() bool                       { return f.started }
func (f *fakeVideoOutput) SetDisplayConfig(c DisplayConfig) error { f.cfg = c; return nil }
func (f *fakeVideoOutput) GetDisplayConfig() DisplayConfig       { return f.cfg }
func (f *fakeVideoOutput) UpdateFrame(buffer []byte) error {
	frame := make([]byte, len(buffer))
	copy(frame, buffer)
	f.frames = append(f.frames, frame)
	return nil
}
func (f *fakeVideoOutput) WaitForVSync() error   { f.vsyncCnt++; return nil }
func (f *fakeVideoOutput) GetFrameCount() uint64 { return uint64(len(f.frames)) }
func (f *fakeVideoOutput) GetRefreshRate() int    { return 60 }

// TestGSFinishSwapsRasterizerAndPresenterPresents checks that a GS FINISH
// write swaps the rasterizer's primitive buffer and advances its
// generation counter, and that Presenter.PresentIfDirty only calls
// UpdateFrame once per such swap.
func TestGSFinishSwapsRasterizerAndPresenterPresents(t *testing.T) {
	mem := NewMemory()
	raster := NewRasterizerBridge()
	gs := NewGSFrontend(mem, raster)
	out := &fakeVideoOutput{}
	presenter := NewPresenter(out, gs, raster, 2, 1)

	if err := presenter.PresentIfDirty(); err != nil {
		t.Fatalf("PresentIfDirty: %v", err)
	}
	if len(out.frames) != 0 {
		t.Fatalf("expected no frame before any FINISH, got %d", len(out.frames))
	}

	gs.handleADWrite(0, 0x61) // FINISH

	if raster.Generation() != 1 {
		t.Fatalf("Generation() = %d, want 1 after FINISH", raster.Generation())
	}

	if err := presenter.PresentIfDirty(); err != nil {
		t.Fatalf("PresentIfDirty: %v", err)
	}
	if len(out.frames) != 1 {
		t.Fatalf("expected exactly one frame after the first FINISH, got %d", len(out.frames))
	}

	if err := presenter.PresentIfDirty(); err != nil {
		t.Fatalf("PresentIfDirty: %v", err)
	}
	if len(out.frames) != 1 {
		t.Fatalf("expected no additional frame without a new FINISH, got %d", len(out.frames))
	}

	gs.handleADWrite(0, 0x61) // second FINISH
	if raster.Generation() != 2 {
		t.Fatalf("Generation() = %d, want 2 after second FINISH", raster.Generation())
	}
	if err := presenter.PresentIfDirty(); err != nil {
		t.Fatalf("PresentIfDirty: %v", err)
	}
	if len(out.frames) != 2 {
		t.Fatalf("expected a second frame after the second FINISH, got %d", len(out.frames))
	}
}

// TestRasterizerBridgeSwapPublishesAndClearsBackBuffer checks the
// double-buffer handoff directly: Swap must publish whatever was pushed
// and reset the back buffer for the next batch.
func TestRasterizerBridgeSwapPublishesAndClearsBackBuffer(t *testing.T) {
	b := NewRasterizerBridge()
	b.Push(Primitive{Kind: primTriangle, NumVerts: 3})
	b.Push(Primitive{Kind: primSprite, NumVerts: 2})

	if len(b.Frame()) != 0 {
		t.Fatalf("Frame() before Swap = %d primitives, want 0", len(b.Frame()))
	}

	b.Swap()
	front := b.Frame()
	if len(front) != 2 {
		t.Fatalf("Frame() after Swap = %d primitives, want 2", len(front))
	}
	if b.Generation() != 1 {
		t.Fatalf("Generation() = %d, want 1", b.Generation())
	}

	b.Push(Primitive{Kind: primPoint, NumVerts: 1})
	b.Swap()
	if len(b.Frame()) != 1 {
		t.Fatalf("Frame() after second Swap = %d primitives, want 1", len(b.Frame()))
	}
	if b.Generation() != 2 {
		t.Fatalf("Generation() = %d, want 2", b.Generation())
	}
}
