package bootglue

import (
	"aethelos/capability"
	"aethelos/console"
	"aethelos/defs"
	"aethelos/diag"
	"aethelos/entropy"
	"aethelos/interrupt"
	"aethelos/klog"
	"aethelos/loom"
	"aethelos/manapool"
	"aethelos/mem"
	"aethelos/pagetable"
	"aethelos/policy"
	"aethelos/syscallentry"
	"aethelos/vessel"
	"aethelos/ward"
)

// Config is everything Boot needs that cannot be discovered from
// hardware: the raw Multiboot2 info blob, a framebuffer to draw the
// VGA console over, the init Vessel's ELF image, the selectors
// syscallentry's STAR MSR packs, and the resource policy to enforce.
//
// Real is false for every hosted test and true only for the real
// kernel entry point (not yet written: the asm stub that copies the
// Multiboot2 blob out of physical memory and jumps here). It gates
// every UseReal<X> call below — calling those outside a real boot
// would install privileged instructions a hosted process cannot
// execute.
type Config struct {
	Multiboot   []byte
	Framebuffer []uint16
	InitELF     []byte
	Selectors   syscallentry.Selectors
	Policy      policy.Limits
	Real        bool
}

// Kernel holds every subsystem Boot wires together, for cmd/kernel's
// main loop (not yet written) to hold onto.
type Kernel struct {
	Console      *console.Console
	Frames       *mem.Allocator
	Pages        *pagetable.Manager
	ManaPool     *manapool.ManaPool
	Wards        *ward.Wards
	Loom         *loom.Loom
	Harbor       *vessel.Harbor
	IDT          *interrupt.Table
	Vessels      *policy.Budget
	Capabilities *capability.Table

	InitVessel *vessel.Vessel
}

// memRegions splits a Multiboot2 memory map into the available
// regions mem.New consumes and the reserved regions it must carve
// back out (everything not MemAvailable, plus the Multiboot info blob
// and kernel image themselves).
func memRegions(mm []MemoryMapEntry, extraReserved []mem.Region) ([]mem.Region, []mem.Region) {
	var avail, reserved []mem.Region
	for _, e := range mm {
		r := mem.Region{Start: mem.Frame(e.PhysAddress >> mem.PageShift), Length: e.Length}
		if e.Type == MemAvailable {
			avail = append(avail, r)
		} else {
			reserved = append(reserved, r)
		}
	}
	return avail, append(reserved, extraReserved...)
}

// Boot brings every subsystem online in the order spec.md's data flow
// describes: entropy first (everything downstream needs a seed),
// frames from the parsed memory map, page tables and the Mana Pool
// over those frames, the console and structured logging, capabilities
// and the Wards, the Loom's idle thread, interrupts wired to real IDT
// gates, the syscall entry MSRs, and finally the init Vessel moored
// through the Harbor under the policy's MaxVessels budget.
func Boot(cfg Config) (*Kernel, error) {
	if err := entropy.Global.Init(); err != nil {
		return nil, err
	}

	in := NewInfo(cfg.Multiboot)
	avail, reserved := memRegions(in.MemoryMap(), nil)
	frames := mem.New(avail, reserved)

	pages := pagetable.NewManager(frames)
	// The kernel's own text/rodata/rune/data/bss mappings come from the
	// linker script a real build produces; no such artifact exists in
	// this hosted tree, so the shared kernel half starts empty. A real
	// boot calls SetKernelTemplate with the populated Table before any
	// Vessel clones it.
	pages.SetKernelTemplate(pagetable.Table{})

	pool := manapool.New(cfg.Policy.ManaPoolPages*mem.PageSize, cfg.Policy.ManaPoolPages*mem.PageSize,
		byte(entropy.Global.Canary()), byte(entropy.Global.Canary()>>8))

	var con *console.Console
	manapool.SetOnCanaryMismatch(func(name manapool.Name, ptr manapool.Ptr) {
		diag.Fatal(con, diag.Report{Reason: "mana pool canary mismatch in " + name.String()})
	})

	if cfg.Real {
		console.UseRealPortIO()
	}
	fb := cfg.Framebuffer
	if fb == nil {
		fb = make([]uint16, console.DefaultWidth*console.DefaultHeight)
	}
	con = console.New(console.NewVGA(console.DefaultWidth, console.DefaultHeight, fb), console.NewSerial(console.COM1))
	klog.Configure(con)

	caps := capability.NewTable(entropy.Global.SealKey())

	wards := ward.New(pages)
	_, smap := wards.EnableHardening()

	l := loom.New()
	idle := l.CreateThread(0, nil, 0, 0)
	l.SetIdleThread(idle)

	dispatcher := interrupt.NewDispatcher()
	kb := console.NewKeyboard()
	harbor := vessel.NewHarbor()
	faults := interrupt.NewFaults(wards, harbor, l, frames, pages, con)
	timer := interrupt.NewTimer(l)
	timer.Ticks = cfg.Policy.QuantumTicks
	kbIRQ := interrupt.NewKeyboardIRQ(kb)
	dispatcher.Register(interrupt.VectorPageFault, faults.PageFault)
	if cfg.Policy.PreemptionEnabled {
		dispatcher.Register(interrupt.VectorTimer, timer.Tick)
	}
	dispatcher.Register(interrupt.VectorKeyboard, kbIRQ.Handle)
	interrupt.SetActiveDispatcher(dispatcher)

	idt := &interrupt.Table{}
	idt.SetGate(interrupt.VectorPageFault, uint64(interrupt.PageFaultEntryPoint()), cfg.Selectors.KernelCS, 0)
	idt.SetGate(interrupt.VectorTimer, uint64(interrupt.TimerEntryPoint()), cfg.Selectors.KernelCS, 0)
	idt.SetGate(interrupt.VectorKeyboard, uint64(interrupt.KeyboardEntryPoint()), cfg.Selectors.KernelCS, 0)
	interrupt.RemapPIC()
	if cfg.Policy.PreemptionEnabled {
		interrupt.UnmaskIRQ(0)
	}
	interrupt.UnmaskIRQ(1)

	if cfg.Real {
		interrupt.UseRealLIDT()
		interrupt.UseRealCR2()
		pagetable.UseRealINVLPG()
		if smap {
			ward.UseRealStacClac()
		}
		diag.UseRealHalt()
	}
	interrupt.Load(interrupt.DescriptorFor(idt))

	syscalls := &syscallentry.Syscalls{Loom: l, Harbor: harbor, Frames: frames, Pages: pages, Stdout: con, Stdin: kb}
	syscallentry.SetActiveDispatcher(syscallentry.NewDefaultDispatcher(syscalls))
	msrCfg, ok := syscallentry.BuildMSRConfig(cfg.Selectors, syscallentry.EntryPoint())
	if !ok {
		return nil, defs.EINVAL
	}
	if cfg.Real {
		syscallentry.UseRealWRMSR()
		syscallentry.Install(msrCfg)
	}

	budget := policy.NewBudget(cfg.Policy.MaxVessels)
	var initVessel *vessel.Vessel
	if len(cfg.InitELF) > 0 {
		if !budget.Take() {
			return nil, defs.ENOMEM
		}
		v, verr := harbor.MoorVessel(cfg.InitELF, "init", nil, cfg.Policy.ResourceLimits(), vessel.Deps{
			Frames:  frames,
			Pages:   pages,
			Loom:    l,
			SealKey: entropy.Global.SealKey(),
		})
		if verr != 0 {
			budget.Give()
			return nil, verr
		}
		initVessel = v
	}

	return &Kernel{
		Console:      con,
		Frames:       frames,
		Pages:        pages,
		ManaPool:     pool,
		Wards:        wards,
		Loom:         l,
		Harbor:       harbor,
		IDT:          idt,
		Vessels:      budget,
		Capabilities: caps,
		InitVessel:   initVessel,
	}, nil
}
