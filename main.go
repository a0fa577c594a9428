// main.go - Main entry point for the PS2 static-recompilation runtime host

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"os"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nPS2 static-recompilation runtime host")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

var defaultElfCandidates = []string{
	"game.elf",
	"SLUS_000.00",
	"boot/SLUS_000.00",
}

func findDefaultELF() string {
	for _, p := range defaultElfCandidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// validateResolutionOverride accepts a -width/-height pair only when both
// are set; a lone dimension is rejected rather than guessing the other.
func validateResolutionOverride(width, height int) (w, h int, ok bool) {
	if width > 0 && height > 0 {
		return width, height, true
	}
	return 0, 0, false
}

func main() {
	boilerPlate()

	elfPath := flag.String("elf", "", "path to the game ELF (defaults to searching game.elf, SLUS_000.00, boot/SLUS_000.00)")
	mc0Dir := flag.String("mc0", "mc0", "host directory backing mc0:/ memory-card paths")
	hostRootDir := flag.String("host-root", ".", "host directory backing host:/ paths")
	cdRootDir := flag.String("cd-root", ".", "host directory backing cd0:/ paths")
	headless := flag.Bool("headless", false, "run without opening a display/audio device")
	maxCycles := flag.Int("max-cycles", 100000, "VU1 cycle budget per MSCAL/MSCALF dispatch")
	widthOverride := flag.Int("width", 0, "override presented display width (requires -height)")
	heightOverride := flag.Int("height", 0, "override presented display height (requires -width)")
	flag.Parse()

	displayWidth, displayHeight := 640, 448
	if w, h, ok := validateResolutionOverride(*widthOverride, *heightOverride); ok {
		displayWidth, displayHeight = w, h
	}

	path := *elfPath
	if path == "" {
		path = findDefaultELF()
	}
	if path == "" {
		fmt.Println("Could not find a game ELF; pass -elf <path>")
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read ELF %q: %v\n", path, err)
		os.Exit(1)
	}

	paths := HostPaths{
		ElfDirectory: ".",
		HostRoot:     *hostRootDir,
		CdRoot:       *cdRootDir,
		McRoot:       *mc0Dir,
	}

	rt := NewRuntime(paths)
	rt.VU1.SetCycleBudget(*maxCycles)

	entry, err := rt.LoadELF(path, data)
	if err != nil {
		fmt.Printf("Failed to load ELF %q: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %s, entry point 0x%08x\n", path, entry)

	if !*headless {
		player, err := NewOtoPlayer(44100)
		if err != nil {
			fmt.Printf("Failed to initialize audio backend: %v\n", err)
			os.Exit(1)
		}
		player.SetupPlayer(rt.Audio)
		player.Start()
		defer player.Close()
	}

	var presenter *Presenter
	if !*headless {
		backend, err := NewVideoOutput(VIDEO_BACKEND_EBITEN)
		if err != nil {
			fmt.Printf("Failed to initialize video backend: %v\n", err)
			os.Exit(1)
		}
		if err := backend.SetDisplayConfig(DisplayConfig{Width: displayWidth, Height: displayHeight, Scale: 1, RefreshRate: 60}); err != nil {
			fmt.Printf("Failed to configure display: %v\n", err)
			os.Exit(1)
		}
		if err := backend.Start(); err != nil {
			fmt.Printf("Failed to start video backend: %v\n", err)
			os.Exit(1)
		}
		presenter = NewPresenter(backend, rt.GS, rt.Raster, displayWidth, displayHeight)
		stop := make(chan struct{})
		defer close(stop)
		go presenter.RunLoop(60, stop)

		console := NewDebugConsole(rt)
		console.Start()
		defer console.Stop()
	}

	if err := rt.Run(entry); err != nil {
		fmt.Printf("Execution stopped: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Execution completed.")
}
