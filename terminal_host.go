//go:build !windows

package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// DebugConsole reads raw stdin keystrokes and drives a small set of
// runtime diagnostics: 'd' prints a one-line state dump, 'c' copies that
// same dump to the host clipboard, 'q' requests shutdown. Only
// instantiated in main.go for interactive use — never in tests.
type DebugConsole struct {
	rt           *Runtime
	quit         chan struct{}
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// NewDebugConsole creates a host adapter that reads stdin and reports on rt.
func NewDebugConsole(rt *Runtime) *DebugConsole {
	return &DebugConsole{
		rt:     rt,
		quit:   make(chan struct{}),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// QuitRequested reports whether the user pressed 'q'.
func (h *DebugConsole) QuitRequested() <-chan struct{} { return h.quit }

func (h *DebugConsole) dumpLine() string {
	return fmt.Sprintf("gif_tags=%d dma_starts=%d gif_copies=%d gs_writes=%d vif_writes=%d",
		h.rt.GS.gifTagsProcessed, h.rt.Memory.DmaStartCount(), h.rt.Memory.GifCopyCount(),
		h.rt.Memory.GSWriteCount(), h.rt.Memory.VifWriteCount())
}

// Start puts stdin into raw non-blocking mode and begins reading keys in
// a goroutine. Call Stop() to restore stdin.
func (h *DebugConsole) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal_host: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "terminal_host: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				h.handleKey(buf[0])
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

func (h *DebugConsole) handleKey(b byte) {
	switch b {
	case 'd':
		fmt.Fprintln(os.Stderr, h.dumpLine())
	case 'c':
		copyToClipboard(h.dumpLine())
	case 'q':
		select {
		case <-h.quit:
		default:
			close(h.quit)
		}
	}
}

// Stop terminates the stdin reading goroutine and restores stdin to blocking mode.
func (h *DebugConsole) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
