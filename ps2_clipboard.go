// ps2_clipboard.go - one-shot clipboard write for the debug console

package main

import (
	"sync"

	"golang.design/x/clipboard"
)

var (
	clipboardOnce sync.Once
	clipboardOK   bool
)

// copyToClipboard writes s to the host clipboard, silently doing nothing
// if no clipboard is available (headless CI, no X/Wayland session, etc).
func copyToClipboard(s string) {
	clipboardOnce.Do(func() {
		clipboardOK = clipboard.Init() == nil
	})
	if !clipboardOK {
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(s))
}
