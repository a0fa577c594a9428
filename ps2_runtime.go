// ps2_runtime.go - Top-level runtime wiring every PS2 component together

package main

import "fmt"

// Runtime owns every emulated component and is the third argument every
// recompiled and stub function receives, letting translated code reach
// back into memory, DMA, audio and the function registry without any of
// those being package globals.
type Runtime struct {
	Memory   *Memory
	DMA      *DMAEngine
	GIF      *GIFArbiter
	GS       *GSFrontend
	Raster   *RasterizerBridge
	VIF1     *VIF1Parser
	VU1      *VU1
	Audio    *AudioSubsystem
	Registry *FunctionRegistry
	Paths    HostPaths
}

// NewRuntime wires memory, DMA, the GIF arbiter, the GS front-end, VIF1
// and VU1 together exactly as §5's data-flow diagram describes: guest
// store -> DMA -> VIF1/GIF -> GS/VU1 -> primitive back-buffer.
func NewRuntime(paths HostPaths) *Runtime {
	mem := NewMemory()
	raster := NewRasterizerBridge()
	gs := NewGSFrontend(mem, raster)

	rt := &Runtime{
		Memory:   mem,
		Raster:   raster,
		GS:       gs,
		Audio:    NewAudioSubsystem(mem),
		Registry: NewFunctionRegistry(),
		Paths:    paths,
	}

	rt.GIF = NewGIFArbiter(gs.Process)
	rt.VU1 = NewVU1(mem, rt.GIF)
	rt.VIF1 = NewVIF1Parser(mem, rt.GIF)
	rt.VIF1.SetVu1Start(rt.VU1)
	rt.DMA = NewDMAEngine(mem, rt.GIF, rt.VIF1)

	return rt
}

// LoadELF loads elf's PT_LOAD segments into RDRAM, applies that title's
// game overrides, and returns the entry point recompiled execution
// should start from.
func (rt *Runtime) LoadELF(elfPath string, data []byte) (uint32, error) {
	entry, err := LoadELF(rt.Memory, data)
	if err != nil {
		return 0, err
	}
	if err := ApplyGameOverrides(rt.Registry, elfPath, entry); err != nil {
		return 0, err
	}
	return entry, nil
}

// ProcessPendingTransfers drains every started DMA channel, then lets the
// GIF arbiter fan its queued packets out to the GS front-end. Per §5's
// ordering guarantee, VIF1-driven DMA parsing happens inside ProcessPendingTransfers
// before the arbiter is drained, and the arbiter sorts PATH1 < PATH2 < PATH3.
func (rt *Runtime) ProcessPendingTransfers() {
	rt.DMA.ProcessPendingTransfers()
	rt.GIF.Drain()
}

// Reset clears guest memory (see Memory.Reset) and stops every audio
// voice; DMA, VIF1, VU1 and GS state are not reset.
func (rt *Runtime) Reset() {
	rt.Memory.Reset()
	rt.Audio.stopAll()
}

// Run calls fn at pc repeatedly via the function registry until it
// returns without advancing PC (recompiled functions update ctx.PC
// themselves on tail calls; a function that leaves PC unchanged signals
// completion), or until no function is registered at the current PC.
func (rt *Runtime) Run(pc uint32) error {
	ctx := &R5900Context{PC: pc}
	for {
		fn, ok := rt.Registry.LookupFunction(ctx.PC)
		if !ok {
			return fmt.Errorf("ps2: no recompiled function registered at pc=0x%08x", ctx.PC)
		}
		prevPC := ctx.PC
		fn(rt.Memory.RDRAM(), ctx, rt)
		rt.ProcessPendingTransfers()
		if ctx.PC == prevPC {
			return nil
		}
	}
}
