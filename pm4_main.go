// pm4_main.go - Main entry point for the Intuition Engine PM4 GPU command processor

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

A PM4 command-stream interpreter for the Intuition Engine.
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m")
	fmt.Println("\nA PM4 command-stream interpreter: decodes a GPU ring buffer and drives a rasterizer backend.")
	fmt.Println("License: GPLv3 or later")
}

// pm4RingBase and pm4RingCapacity locate the demo ring inside guest memory;
// a real embedding application would instead hand the command processor
// whatever ring address/size the guest CPU itself configured.
const (
	pm4RingBase     = 0x00100000
	pm4RingCapacity = 0x00010000
)

func main() {
	boilerPlate()

	if len(os.Args) != 2 {
		fmt.Println("Usage: ./pm4gpu commandstream.bin")
		os.Exit(1)
	}
	filename := os.Args[1]

	bus := NewMachineBus()

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error loading command stream: %v\n", err)
		os.Exit(1)
	}
	if len(data) > pm4RingCapacity {
		fmt.Printf("Command stream too large for ring capacity (%d > %d)\n", len(data), pm4RingCapacity)
		os.Exit(1)
	}
	for i, b := range data {
		bus.WriteMemoryDirect(uint32(pm4RingBase+i), b)
	}

	voodoo, err := NewVoodooEngine(bus)
	if err != nil {
		fmt.Printf("Failed to initialize rendering backend: %v\n", err)
		os.Exit(1)
	}
	voodoo.SetEnabled(true)

	display, err := NewVideoOutput(VIDEO_BACKEND_EBITEN)
	if err != nil {
		fmt.Printf("Failed to initialize display: %v\n", err)
		os.Exit(1)
	}
	if err := display.Start(); err != nil {
		fmt.Printf("Failed to start display: %v\n", err)
		os.Exit(1)
	}

	adapter := NewPm4BackendAdapter(voodoo, display, nil)
	guestMem := NewPm4GuestMemory(bus)
	ring := NewPm4RingReader(bus.GetMemory(), pm4RingBase, pm4RingCapacity)
	ring.SetWriteOffset(uint32(len(data)))

	config := Pm4Config{QueryOcclusionFakeSampleCount: 0, VSync: true}
	processor := NewPm4CommandProcessor(ring, guestMem, adapter, NewPm4NullTrace(), config)

	fmt.Printf("Running PM4 command stream: %s (%d bytes)\n", filename, len(data))
	processor.Run()
}
