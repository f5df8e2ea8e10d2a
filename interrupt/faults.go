package interrupt

import (
	"io"
	"strconv"

	"aethelos/diag"
	"aethelos/klog"
	"aethelos/loom"
	"aethelos/mem"
	"aethelos/pagetable"
	"aethelos/vessel"
	"aethelos/ward"
)

// Page-fault error code bits (Intel SDM vol 3, §4.7).
const (
	pfPresent = 1 << 0
	pfWrite   = 1 << 1
	pfUser    = 1 << 2
)

// Faults bundles the subsystems the page-fault handler needs to tell a
// sealed-write fault (fatal, §4.6) from a kernel-mode fault (fatal,
// §7) from an ordinary user-mode fault (kills the offending Vessel,
// keeps the kernel alive, §7).
type Faults struct {
	Wards  *ward.Wards
	Harbor *vessel.Harbor
	Loom   *loom.Loom
	Frames *mem.Allocator
	Pages  *pagetable.Manager
	Out    io.Writer

	dedup *diag.Dedup
}

// NewFaults builds a Faults handler set. Out is where diag.Fatal's
// structured panic message is written.
func NewFaults(w *ward.Wards, h *vessel.Harbor, l *loom.Loom, frames *mem.Allocator, pages *pagetable.Manager, out io.Writer) *Faults {
	return &Faults{Wards: w, Harbor: h, Loom: l, Frames: frames, Pages: pages, Out: out, dedup: diag.NewDedup()}
}

// currentVesselSpace resolves the page-table space and Vessel owning
// the currently-scheduled thread, if any.
func (f *Faults) currentVesselSpace() (*pagetable.Space, *vessel.Vessel) {
	t := f.Loom.Current()
	if t == nil || t.VesselID == nil {
		return nil, nil
	}
	v, ok := f.Harbor.Lookup(*t.VesselID)
	if !ok {
		return nil, nil
	}
	return v.Space, v
}

// PageFault implements the §4.6/§7 page-fault decision: sealed-write
// and kernel-mode faults are fatal; user-mode faults on an unsealed
// address kill the offending Vessel and let the kernel continue.
func (f *Faults) PageFault(regs *Regs, frame *Frame, errorCode uint64) {
	addr := readCR2()
	sp, v := f.currentVesselSpace()

	if sp != nil && f.Wards.IsSealedFault(sp, addr) {
		diag.Fatal(f.Out, diag.Report{
			Reason:    "sealed .rune write",
			ThreadID:  currentTID(f.Loom),
			RIP:       frame.RIP,
			FaultAddr: addr,
		})
		return
	}

	if errorCode&pfUser == 0 {
		diag.Fatal(f.Out, diag.Report{
			Reason:    "kernel-mode page fault",
			ThreadID:  currentTID(f.Loom),
			RIP:       frame.RIP,
			FaultAddr: addr,
		})
		return
	}

	// User-mode fault on an unsealed address: kill the Vessel, keep the
	// kernel alive (§7). The current thread fades immediately; full
	// teardown only proceeds once it is the Vessel's main thread that
	// faded, matching Harbor.Destroy's precondition.
	t := f.Loom.Current()
	if t == nil {
		return
	}
	if f.dedup.First(faultKey(v, addr)) {
		klog.For("interrupt", uint64(t.ID), uint64(vesselIDOf(v))).
			WithField("addr", addr).Warn("user-mode page fault, killing vessel")
	}
	f.Loom.Exit(t.ID)
	if v != nil && v.MainThread != nil && v.MainThread.ID == t.ID {
		f.Harbor.Destroy(v.ID, f.Pages, f.Frames, f.Loom)
	}
}

func currentTID(l *loom.Loom) uint64 {
	if t := l.Current(); t != nil {
		return uint64(t.ID)
	}
	return 0
}

func vesselIDOf(v *vessel.Vessel) uint64 {
	if v == nil {
		return 0
	}
	return uint64(v.ID)
}

func faultKey(v *vessel.Vessel, addr uint64) string {
	return strconv.FormatUint(vesselIDOf(v), 16) + ":" + strconv.FormatUint(addr, 16)
}
