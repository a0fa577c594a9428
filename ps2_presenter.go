// ps2_presenter.go - Bridges the GS framebuffer to a VideoOutput backend

/*
The render thread spec.md §5 describes owns the primitive back-buffer
consumer; in practice the simplest correct consumer for a host backend
built around VideoOutput.UpdateFrame(rgba []byte) is reading the draw
context's framebuffer straight out of GS VRAM rather than re-rasterizing
the primitive list a second time on the host side. Presenter does that:
it polls RasterizerBridge.Generation() so it only calls UpdateFrame when
a new primitive batch has actually swapped in.
*/

package main

import "time"

// Presenter pulls the GS framebuffer out of a Runtime and pushes it to a
// VideoOutput backend once per observed generation change.
type Presenter struct {
	out        VideoOutput
	gs         *GSFrontend
	raster     *RasterizerBridge
	width      int
	height     int
	lastGen    uint64
}

func NewPresenter(out VideoOutput, gs *GSFrontend, raster *RasterizerBridge, width, height int) *Presenter {
	return &Presenter{out: out, gs: gs, raster: raster, width: width, height: height}
}

// PresentIfDirty pushes a new frame only when the rasterizer bridge's
// generation counter has advanced since the last call.
func (p *Presenter) PresentIfDirty() error {
	gen := p.raster.Generation()
	if gen == p.lastGen {
		return nil
	}
	p.lastGen = gen
	return p.out.UpdateFrame(p.gs.FramebufferRGBA(p.width, p.height))
}

// RunLoop polls PresentIfDirty at refreshRate until stop is closed.
func (p *Presenter) RunLoop(refreshRate int, stop <-chan struct{}) {
	if refreshRate <= 0 {
		refreshRate = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(refreshRate))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = p.PresentIfDirty()
		}
	}
}
