// ps2_registers.go - Centralized I/O register address map for the PS2 runtime

/*
MEMORY MAP OVERVIEW
====================

Address Range              Device                  Owner
--------------------------------------------------------------------------
0x00000000-0x01FFFFFF       RDRAM (32MB)            ps2_memory.go
0x70000000-0x70003FFF       Scratchpad (16KB)        ps2_memory.go
0x11008000-0x1100BFFF       VU1 micro memory (16KB)  ps2_vu1.go
0x1100C000-0x1100FFFF       VU1 data memory (16KB)   ps2_vu1.go
0x12000000-0x12001FFF       GS privileged registers  ps2_gs.go
0x10000000-0x100007FF       VIF0 registers           ps2_vif1.go (shadow only)
0x10003800-0x10003FFF       VIF1 registers           ps2_vif1.go
0x10008000-0x1000CFFF       DMA channel blocks       ps2_dma.go
0x1000E000-0x1000E05F       DMAC global registers    ps2_dma.go
0x1000F000-0x1000F01F       INTC                     ps2_memory.go (shadow only)

DMA CHANNEL BLOCK (stride 0x1000, per spec.md §6)
==================================================
  +0x00 CHCR, +0x10 MADR, +0x20 QWC, +0x30 TADR, +0x40 ASR0, +0x50 ASR1, +0x80 SADR
  Channel 1 (VIF1) base 0x10009000; channel 2 (GIF) base 0x1000A000.
*/

package main

const (
	regVIF0Base = 0x10000000
	regVIF1Base = 0x10003800

	vifStat  = 0x00
	vifErr   = 0x20
	vifMark  = 0x30
	vifCycle = 0x40
	vifMode  = 0x50
	vifNum   = 0x60
	vifMask  = 0x70
	vifCode  = 0x80
	vifItops = 0x90
	vifBase  = 0xA0
	vifOfst  = 0xB0
	vifTops  = 0xC0
	vifItop  = 0xD0
	vifTop   = 0xE0
	vifRow0  = 0x100
	vifCol0  = 0x110
	// FBRST sits far from the rest of the VIF1 block on real hardware
	// (0x1000_3C10 vs the 0x1000_3800 base), kept as its own offset.
	vifFbrst = vif1Fbrst - regVIF1Base

	regDmaChannelBase = 0x10008000
	dmaChannelStride  = 0x1000
	dmaVIF1Channel    = 1
	dmaGIFChannel     = 2

	dmaChcr = 0x00
	dmaMadr = 0x10
	dmaQwc  = 0x20
	dmaTadr = 0x30
	dmaAsr0 = 0x40
	dmaAsr1 = 0x50
	dmaSadr = 0x80

	regDCTRL = 0x1000E000
	regDSTAT = 0x1000E010
	regDPCR  = 0x1000E020
	regDSQWC = 0x1000E030
	regDRBSR = 0x1000E040
	regDRBOR = 0x1000E050

	// GS privileged register offsets within [ps2GSPrivBase, +0x2000).
	gsPMODE    = 0x00
	gsSMODE1   = 0x10
	gsSMODE2   = 0x20
	gsSRFSH    = 0x30
	gsSYNCH1   = 0x40
	gsSYNCH2   = 0x50
	gsSYNCV    = 0x60
	gsDISPFB1  = 0x70
	gsDISPLAY1 = 0x80
	gsDISPFB2  = 0x90
	gsDISPLAY2 = 0xA0
	gsEXTBUF   = 0xB0
	gsEXTDATA  = 0xC0
	gsEXTWRITE = 0xD0
	gsBGCOLOR  = 0xE0
	gsCSR      = 0x1000
	gsIMR      = 0x1010
	gsBUSDIR   = 0x1040
	gsSIGLBLID = 0x1080

	vif1Fbrst = 0x10003C10
)

func dmaChannelBaseAddr(ch int) uint32 {
	return regDmaChannelBase + uint32(ch)*dmaChannelStride
}
