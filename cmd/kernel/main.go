// Command kernel is the hosted harness around bootglue.Boot: given a
// Multiboot2 info blob and an init Vessel ELF image (both ordinarily
// supplied by a bootloader and a build pipeline, here read from disk
// since nothing in this tree runs on real hardware), it brings every
// subsystem up in boot order and reports what came online.
//
// A real boot's entry stub would copy the Multiboot2 blob out of
// physical memory, set Config.Real, and never return from Boot; this
// harness's closing select{} is the hosted stand-in for that
// never-returns tail.
package main

import (
	"fmt"
	"log"
	"os"

	"aethelos/bootglue"
	"aethelos/manapool"
	"aethelos/policy"
	"aethelos/syscallentry"
)

func usage(me string) {
	fmt.Printf("%s <multiboot.bin> [init.elf]\n", me)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		usage(os.Args[0])
	}

	mb, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	var initELF []byte
	if len(os.Args) == 3 {
		initELF, err = os.ReadFile(os.Args[2])
		if err != nil {
			log.Fatal(err)
		}
	}

	k, err := bootglue.Boot(bootglue.Config{
		Multiboot: mb,
		InitELF:   initELF,
		Selectors: syscallentry.Selectors{KernelCS: 0x08, UserCS: 0x20 | 3, UserSS: 0x18 | 3},
		Policy:    policy.Defaults(),
		Real:      false,
	})
	if err != nil {
		log.Fatalf("boot failed: %v", err)
	}

	frameStats := k.Frames.Stats()
	manaStats := k.ManaPool.Stats(manapool.Sanctuary)
	fmt.Printf("frames: %d/%d free\n", frameStats.FreeFrames, frameStats.TotalFrames)
	fmt.Printf("mana pool (sanctuary): %d free 64-byte blocks, %d/%d bytes used\n", manaStats.FreePerOrder[0], manaStats.Used, manaStats.Total)
	if k.InitVessel != nil {
		fmt.Printf("init vessel moored: id=%d entry=%#x\n", k.InitVessel.ID, k.InitVessel.EntryPoint)
	}

	select {}
}
