// ps2_errors.go - Error kinds for the PS2 runtime

package main

import "fmt"

// AlignmentError reports an unaligned 16/32/64/128-bit guest memory access.
type AlignmentError struct {
	Addr   uint32
	Size   int
	Source string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("ps2: alignment fault addr=0x%08x size=%d source=%s", e.Addr, e.Size, e.Source)
}

// UnmappedAddressError reports a guest address that resolved to neither
// RDRAM, scratchpad nor a known I/O region.
type UnmappedAddressError struct {
	Addr   uint32
	Source string
}

func (e *UnmappedAddressError) Error() string {
	return fmt.Sprintf("ps2: unmapped address addr=0x%08x source=%s", e.Addr, e.Source)
}

// InvalidGifTagError reports a GIFtag with FLG=3 (reserved) or a REGLIST
// descriptor index out of range.
type InvalidGifTagError struct {
	Reason string
	Source string
}

func (e *InvalidGifTagError) Error() string {
	return fmt.Sprintf("ps2: invalid GIFtag (%s) source=%s", e.Reason, e.Source)
}

// DmaConfigError reports STR=1 with QWC=0 in normal mode, or a reserved
// chain-tag ID.
type DmaConfigError struct {
	Channel int
	Reason  string
}

func (e *DmaConfigError) Error() string {
	return fmt.Sprintf("ps2: DMA config fault channel=%d (%s)", e.Channel, e.Reason)
}

// OverrideRegistrationError reports a duplicate address binding or an
// unresolved handler name in the game-override registry.
type OverrideRegistrationError struct {
	Name   string
	Addr   uint32
	Reason string
}

func (e *OverrideRegistrationError) Error() string {
	return fmt.Sprintf("ps2: override registration failed name=%q addr=0x%08x (%s)", e.Name, e.Addr, e.Reason)
}

// VagFormatError reports a VAG file with a missing magic or a truncated block.
type VagFormatError struct {
	Reason string
}

func (e *VagFormatError) Error() string {
	return fmt.Sprintf("ps2: VAG format error (%s)", e.Reason)
}

// logFault prints the single-diagnostic-line the spec mandates and
// continues emulation; it never panics or aborts the caller.
func logFault(err error) {
	fmt.Println(err)
}
