// Package vessel implements the user-process mechanism of spec.md
// §3/§4: Vessel process records, the Harbor process table, and ELF
// loading via moor_vessel.
//
// The per-process accounting counters are atomic nanosecond totals
// behind an embedded mutex; the clock source has no wall-clock
// dependency in this package — callers supply elapsed nanoseconds.
// The ELF loader uses debug/elf to walk every PT_LOAD program header
// and build the Vessel's address space, honoring PHDR permissions and
// rejecting W∧X segments with ENOEXEC-equivalent semantics.
package vessel

import (
	"bytes"
	"debug/elf"
	"sync"
	"sync/atomic"

	"aethelos/capability"
	"aethelos/defs"
	"aethelos/irqlock"
	"aethelos/loom"
	"aethelos/mem"
	"aethelos/pagetable"
)

// Accounting holds per-Vessel counter state: nanosecond totals
// updated atomically, with a mutex reserved for callers that need a
// consistent multi-field snapshot.
type Accounting struct {
	sync.Mutex
	UserNs int64
	SysNs  int64
}

// AddUser adds delta nanoseconds of user-mode time.
func (a *Accounting) AddUser(delta int64) { atomic.AddInt64(&a.UserNs, delta) }

// AddSys adds delta nanoseconds of kernel-mode time.
func (a *Accounting) AddSys(delta int64) { atomic.AddInt64(&a.SysNs, delta) }

// ResourceLimits bounds one Vessel's resource consumption. It is the
// supplemented-features knob for stack/guard-page sizing spec.md §9's
// audit note calls out ("add guard pages and make the stack size
// configurable; the spec does not fix the numbers") — populated from
// policy.Limits at boot, or defaults here for tests.
type ResourceLimits struct {
	UserStackPages   uint64
	KernelStackPages uint64
	GuardPages       uint64
	MaxCapabilities  int
}

// DefaultLimits matches the audit note's own numbers (8 MiB heap is
// out of scope for a per-Vessel limit; 16 KiB kernel stack becomes 4
// pages) but adds the guard page the audit said was missing.
var DefaultLimits = ResourceLimits{
	UserStackPages:   16, // 64 KiB
	KernelStackPages: 4,  // 16 KiB
	GuardPages:       1,
	MaxCapabilities:  256,
}

const (
	userStackTop  = 0x0000_7FFF_FFFF_F000
	userFirstPage = 0x0000_0000_0000_1000 // page 0 stays unmapped (§4.7)
)

// Vessel is the user-process record of §3.
type Vessel struct {
	ID         defs.VesselId
	Parent     *defs.VesselId
	Name       string
	Space      *pagetable.Space
	EntryPoint uint64

	KernelStackBottom uint64
	KernelStackTop    uint64

	MainThread   *loom.Thread
	Capabilities *capability.Table
	Limits       ResourceLimits
	Accounting   Accounting

	Memory *Memory

	mappedPages []uint64 // page-aligned vaddrs this Vessel owns, for teardown
}

// TrackPages records additional page-aligned virtual addresses this
// Vessel owns, so Destroy also unmaps and frees them. create_thread
// calls this after AllocKernelStack maps a new thread's kernel stack,
// the same way moor_vessel tracks the main thread's.
func (v *Vessel) TrackPages(pages []uint64) {
	v.mappedPages = append(v.mappedPages, pages...)
}

// ReadAt and WriteAt let a Vessel stand in directly for
// ward.UserMemory without exposing its internal Memory field.
func (v *Vessel) ReadAt(addr, n uint64) ([]byte, defs.Err_t) { return v.Memory.ReadAt(addr, n) }
func (v *Vessel) WriteAt(addr uint64, data []byte) defs.Err_t { return v.Memory.WriteAt(addr, data) }

// Harbor is the process table of §3: every moored Vessel, indexed by
// id, behind the interrupt-safe lock §5 assigns it.
type Harbor struct {
	mu     irqlock.Lock
	nextID uint64
	vessels map[defs.VesselId]*Vessel
}

// NewHarbor builds an empty process table.
func NewHarbor() *Harbor {
	return &Harbor{vessels: make(map[defs.VesselId]*Vessel)}
}

// Lookup returns the Vessel registered under id, if any.
func (h *Harbor) Lookup(id defs.VesselId) (*Vessel, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.vessels[id]
	return v, ok
}

// Deps bundles the subsystems moor_vessel needs, so its signature
// doesn't grow a parameter per collaborator.
type Deps struct {
	Frames *mem.Allocator
	Pages  *pagetable.Manager
	Loom   *loom.Loom
	SealKey [32]byte
}

// MoorVessel implements §3's moor_vessel(elf_bytes): parses the ELF
// image, builds a fresh address space cloned from the kernel half,
// maps every PT_LOAD segment honoring its permissions (rejecting
// W∧X), allocates the user stack and the per-Vessel kernel stack, and
// registers the result with its own main thread and capability table.
func (h *Harbor) MoorVessel(elfBytes []byte, name string, parent *defs.VesselId, limits ResourceLimits, d Deps) (*Vessel, defs.Err_t) {
	ef, ferr := elf.NewFile(bytes.NewReader(elfBytes))
	if ferr != nil {
		return nil, defs.EVESSELLOAD
	}
	if ef.Class != elf.ELFCLASS64 || ef.Machine != elf.EM_X86_64 {
		return nil, defs.EVESSELLOAD
	}
	if ef.Type != elf.ET_EXEC && ef.Type != elf.ET_DYN {
		return nil, defs.EVESSELLOAD
	}

	space, err := d.Pages.NewSpace()
	if err != 0 {
		return nil, err
	}
	vmem := newMemory()
	var mapped []uint64

	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		writable := prog.Flags&elf.PF_W != 0
		executable := prog.Flags&elf.PF_X != 0
		if writable && executable {
			return nil, defs.EVESSELLOAD // W^X segment, ENOEXEC-equivalent
		}

		flags := pagetable.Present | pagetable.User
		if writable {
			flags |= pagetable.Writable
		}
		if !executable {
			flags |= pagetable.NX
		}

		lo := prog.Vaddr &^ (mem.PageSize - 1)
		hi := (prog.Vaddr + prog.Memsz + mem.PageSize - 1) &^ (mem.PageSize - 1)
		if lo < userFirstPage {
			return nil, defs.EVESSELLOAD // page 0 stays unmapped, §4.7
		}

		data := make([]byte, prog.Memsz)
		r := prog.Open()
		if _, rerr := r.Read(data[:prog.Filesz]); rerr != nil && prog.Filesz > 0 {
			return nil, defs.EVESSELLOAD
		}

		for page := lo; page < hi; page += mem.PageSize {
			f, ferr := d.Frames.AllocFrame()
			if ferr != 0 {
				return nil, defs.EVESSELLOAD
			}
			if merr := d.Pages.Map(space, page, f, flags, false); merr != 0 {
				return nil, defs.EVESSELLOAD
			}
			mapped = append(mapped, page)

			segOff := page - lo
			end := segOff + mem.PageSize
			if end > uint64(len(data)) {
				end = uint64(len(data))
			}
			var chunk []byte
			if segOff < uint64(len(data)) {
				chunk = data[segOff:end]
			}
			vmem.installPage(page, chunk)
		}
	}

	stackLo := userStackTop - limits.UserStackPages*mem.PageSize
	for page := stackLo; page < userStackTop; page += mem.PageSize {
		f, ferr := d.Frames.AllocFrame()
		if ferr != 0 {
			return nil, defs.EVESSELLOAD
		}
		if merr := d.Pages.Map(space, page, f, pagetable.Present|pagetable.User|pagetable.Writable|pagetable.NX, false); merr != 0 {
			return nil, defs.EVESSELLOAD
		}
		mapped = append(mapped, page)
		vmem.installPage(page, nil)
	}

	kstackPages := limits.KernelStackPages
	if kstackPages == 0 {
		kstackPages = DefaultLimits.KernelStackPages
	}
	kstackBottom, kstackTop, kstackPagesMapped, kerr := AllocKernelStack(d.Frames, d.Pages, space, kstackPages, limits.GuardPages)
	if kerr != 0 {
		return nil, kerr
	}
	mapped = append(mapped, kstackPagesMapped...)

	h.mu.Lock()
	h.nextID++
	id := defs.VesselId(h.nextID)
	h.mu.Unlock()

	v := &Vessel{
		ID:                id,
		Parent:            parent,
		Name:              name,
		Space:             space,
		EntryPoint:        ef.Entry,
		KernelStackBottom: kstackBottom,
		KernelStackTop:    kstackTop,
		Capabilities:      capability.NewTable(d.SealKey),
		Limits:            limits,
		Memory:            vmem,
		mappedPages:       mapped,
	}

	vid := id
	thread := d.Loom.CreateThread(priorityNormal, &vid, kstackBottom, kstackTop)
	thread.Context.RIP = ef.Entry
	thread.Context.RSP = userStackTop
	thread.Context.CR3 = uint64(space.PML4)
	v.MainThread = thread

	h.mu.Lock()
	h.vessels[id] = v
	h.mu.Unlock()
	return v, 0
}

const priorityNormal = 10

// kernelStackRegionBase is the reserved virtual region AllocKernelStack
// maps kernel stacks into, separate from KernelBase's direct-map
// window so a stack mapping can never alias a direct-mapped physical
// page. kernelStackSlotPages is the stride between two stacks' slots,
// wide enough that no policy's stackPages+guardPages can spill into
// the next one.
const (
	kernelStackRegionBase = 0xFFFF_FF00_0000_0000
	kernelStackSlotPages  = 1024
)

// AllocKernelStack allocates stackPages contiguous frames for a kernel
// stack and maps them into sp at a fresh slot in the kernel-stack
// region, leaving guardPages worth of virtual addresses immediately
// below the mapped range unmapped (the supplemented guard-page
// feature; §9 audit note). Walking an unmapped address reports
// ok=false (pagetable.Manager.Walk), so an access below the stack's
// bottom faults rather than silently running into the previous
// allocation's frames. It returns the page-aligned virtual addresses
// it mapped so the caller can track them for teardown. Exported so
// syscallentry's create_thread can give a new thread its own kernel
// stack the same way moor_vessel gives the main thread one.
func AllocKernelStack(frames *mem.Allocator, pages *pagetable.Manager, sp *pagetable.Space, stackPages, guardPages uint64) (bottom, top uint64, mappedPages []uint64, err defs.Err_t) {
	f, aerr := frames.AllocFramesAligned(orderFor(stackPages))
	if aerr != 0 {
		return 0, 0, nil, defs.ENOMEM
	}
	slot := uint64(kernelStackRegionBase) + f.Number()*kernelStackSlotPages*mem.PageSize
	bottom = slot + guardPages*mem.PageSize
	top = bottom + stackPages*mem.PageSize

	mappedPages = make([]uint64, 0, stackPages)
	for i := uint64(0); i < stackPages; i++ {
		virt := bottom + i*mem.PageSize
		phys := mem.Frame(uint64(f) + i*mem.PageSize)
		if merr := pages.Map(sp, virt, phys, pagetable.Writable|pagetable.NX, false); merr != 0 {
			// Unwind a partial mapping rather than leaking the frame
			// block and leaving orphaned present PTEs behind: undo
			// every page this call already mapped, then free the rest
			// of the aligned block (including the one that just
			// failed) directly, since it was never mapped at all.
			for _, done := range mappedPages {
				if uf, uerr := pages.Unmap(sp, done); uerr == 0 {
					frames.FreeFrame(uf)
				}
			}
			for j := i; j < stackPages; j++ {
				frames.FreeFrame(mem.Frame(uint64(f) + j*mem.PageSize))
			}
			return 0, 0, nil, merr
		}
		mappedPages = append(mappedPages, virt)
	}
	return bottom, top, mappedPages, 0
}

func orderFor(pages uint64) uint {
	order := uint(0)
	for (uint64(1) << order) < pages {
		order++
	}
	return order
}

// Destroy implements §3's teardown: once every thread the Vessel owns
// (its main thread and any create_thread siblings) has reached Fading
// and every capability is released, every mapped page — user pages,
// and now kernel-stack pages too, since AllocKernelStack maps those
// through the same page-table manager — is unmapped and freed, the
// PML4 frame is freed, and the Vessel is removed from the Harbor.
// Checking only MainThread would let a live sibling thread's
// kernel-stack frames be freed out from under it while still
// scheduled; l's snapshot is consulted so that can't happen.
func (h *Harbor) Destroy(id defs.VesselId, pages *pagetable.Manager, frames *mem.Allocator, l *loom.Loom) defs.Err_t {
	h.mu.Lock()
	v, ok := h.vessels[id]
	if !ok {
		h.mu.Unlock()
		return defs.EINVAL
	}
	if v.MainThread.State != loom.Fading {
		h.mu.Unlock()
		return defs.EINVAL
	}
	for _, t := range l.Snapshot() {
		if t.VesselID != nil && *t.VesselID == id && t.State != loom.Fading {
			h.mu.Unlock()
			return defs.EINVAL
		}
	}
	delete(h.vessels, id)
	h.mu.Unlock()

	for _, page := range v.mappedPages {
		f, uerr := pages.Unmap(v.Space, page)
		if uerr == 0 {
			frames.FreeFrame(f)
		}
	}
	frames.FreeFrame(v.Space.PML4)
	return 0
}
