// ps2_stubs.go - Host path sandbox and BIOS/IOP stub adapters

/*
Adapted from file_io.go's sandboxed-path convention: recompiled games
resolve mc0:/cd0: paths against a fixed set of host directories rather
than touching the real filesystem root. Individual stub functions bind
into the FunctionRegistry as overrides under the canonical 3-arg ABI,
mirroring game_overrides.cpp's pattern of rebinding a handful of BIOS/IOP
calls (pad, CD-ROM, MPEG) to host-native implementations instead of
relying on the recompiled code's own RPC plumbing.
*/

package main

import (
	"os"
	"path/filepath"
	"strings"
)

// HostPaths is the IO path set a runtime resolves guest device prefixes
// against: elfDirectory for relative includes, hostRoot for host:/, cdRoot
// for cd0:/, mcRoot for mc0:/.
type HostPaths struct {
	ElfDirectory string
	HostRoot     string
	CdRoot       string
	McRoot       string
}

// Resolve maps a guest path (optionally prefixed with a device string) to
// a sandboxed host path, rejecting traversal outside the selected root.
func (p HostPaths) Resolve(guestPath string) (string, bool) {
	var root, rel string
	switch {
	case strings.HasPrefix(guestPath, "mc0:/"):
		root, rel = p.McRoot, strings.TrimPrefix(guestPath, "mc0:/")
	case strings.HasPrefix(guestPath, "cd0:/"):
		root, rel = p.CdRoot, strings.TrimPrefix(guestPath, "cd0:/")
	case strings.HasPrefix(guestPath, "host:/"):
		root, rel = p.HostRoot, strings.TrimPrefix(guestPath, "host:/")
	default:
		root, rel = p.ElfDirectory, guestPath
	}
	if root == "" {
		return "", false
	}
	if filepath.IsAbs(rel) || strings.Contains(rel, "..") {
		return "", false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	full := filepath.Join(absRoot, rel)
	relCheck, err := filepath.Rel(absRoot, full)
	if err != nil || strings.HasPrefix(relCheck, "..") {
		return "", false
	}
	return full, true
}

// ReadGuestFile resolves and reads guestPath within the sandbox.
func (p HostPaths) ReadGuestFile(guestPath string) ([]byte, error) {
	full, ok := p.Resolve(guestPath)
	if !ok {
		return nil, &UnmappedAddressError{Source: "HostPaths.ReadGuestFile(" + guestPath + ")"}
	}
	return os.ReadFile(full)
}

// readCString reads a NUL-terminated string out of RDRAM starting at addr.
func readCString(rdram []byte, addr uint32) string {
	var b []byte
	for int(addr) < len(rdram) && len(b) < 1024 {
		c := rdram[addr]
		if c == 0 {
			break
		}
		b = append(b, c)
		addr++
	}
	return string(b)
}

// stubSceCdSync always reports the drive idle; static recompilation has
// no real CD-ROM to wait on.
func stubSceCdSync(rdram []byte, ctx *R5900Context, runtime *Runtime) {
	ctx.SetGPR32(2, 0)
}

// stubSceCdGetError reports no error.
func stubSceCdGetError(rdram []byte, ctx *R5900Context, runtime *Runtime) {
	ctx.SetGPR32(2, 0)
}

// stubSceCdRead loads a CD-relative path through the host sandbox into
// RDRAM at the guest-supplied destination, a0=path, a1=dest, a2=size.
func stubSceCdRead(rdram []byte, ctx *R5900Context, runtime *Runtime) {
	pathAddr := ctx.GPR32(4)
	dest := ctx.GPR32(5)
	size := ctx.GPR32(6)

	path := "cd0:/" + readCString(rdram, pathAddr)
	data, err := runtime.Paths.ReadGuestFile(path)
	if err != nil {
		ctx.SetGPR32(2, 0)
		return
	}
	if uint32(len(data)) > size {
		data = data[:size]
	}
	n := copy(rdram[dest:], data)
	ctx.SetGPR32(2, uint32(n))
}

// stubScePadInit/Open/Read are minimal controller stubs that report an
// idle, always-open pad with no buttons held, since no host input device
// is wired to the recompiled game loop.
func stubScePadInit(rdram []byte, ctx *R5900Context, runtime *Runtime) {
	ctx.SetGPR32(2, 1)
}

func stubScePadPortOpen(rdram []byte, ctx *R5900Context, runtime *Runtime) {
	ctx.SetGPR32(2, 1)
}

func stubScePadRead(rdram []byte, ctx *R5900Context, runtime *Runtime) {
	dest := ctx.GPR32(6)
	if int(dest)+32 <= len(rdram) {
		for i := 0; i < 32; i++ {
			rdram[dest+uint32(i)] = 0
		}
		rdram[dest+2] = 0xFF
		rdram[dest+3] = 0xFF
	}
	ctx.SetGPR32(2, 32)
}

// builtinStubs names the host-native overrides available to bind by
// address; ApplyGameOverrides looks addresses up per-title (they vary
// per ELF build) and calls RegisterOverride with the matching function.
var builtinStubs = map[string]HostFunction{
	"sceCdSync":      stubSceCdSync,
	"sceCdGetError":  stubSceCdGetError,
	"sceCdRead":      stubSceCdRead,
	"scePadInit":     stubScePadInit,
	"scePadPortOpen": stubScePadPortOpen,
	"scePadRead":     stubScePadRead,
}

// overrideBinding names one address that a title's ApplyGameOverrides
// wants bound to a builtin stub instead of whatever the recompiler
// produced at that address.
type overrideBinding struct {
	Addr uint32
	Stub string
}

// gameOverrideTable maps an ELF base filename to the address bindings it
// needs; per-title recompiler output keeps picking different addresses
// for the same BIOS/IOP call, so the binding set travels with the title,
// not with the stub implementations themselves.
var gameOverrideTable = map[string][]overrideBinding{}

// ApplyGameOverrides binds every override gameOverrideTable lists for
// elfPath's base filename into reg, skipping names builtinStubs doesn't
// recognise.
func ApplyGameOverrides(reg *FunctionRegistry, elfPath string, entry uint32) error {
	bindings, ok := gameOverrideTable[filepath.Base(elfPath)]
	if !ok {
		return nil
	}
	for _, b := range bindings {
		fn, ok := builtinStubs[b.Stub]
		if !ok {
			continue
		}
		if err := reg.RegisterOverride(b.Stub, b.Addr, fn); err != nil {
			return err
		}
	}
	return nil
}
