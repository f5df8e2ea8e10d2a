// Package pagetable implements the 4-level page-table manager: it
// constructs and walks PML4→PDPT→PD→PT chains, enforces W^X and the
// user/Global invariant, seals read-only kernel ranges, and records
// the KASLR direct-map offset.
//
// Because this is a hosted simulation with no real physical RAM to
// address, page-table pages are held in a small frame->Table registry
// (Manager.store) instead of being addressed through a direct-map
// window; the one operation that would otherwise need real
// hardware (flushTLB) goes through a package-level function
// variable so a hosted build can swap in a no-op and a real boot can
// swap in the actual instruction.
package pagetable

import (
	"sync"

	"aethelos/defs"
	"aethelos/mem"
)

const (
	// KernelBase is the start of the kernel's direct-map region
	// (§4.2): phys_to_virt(p) = KernelBase + p.
	KernelBase uint64 = 0xFFFF_8000_0000_0000
	entries          = 512
	kernelFirst      = 256 // PML4 index where the shared kernel half begins
)

// Table is one level of the page-table hierarchy: PML4, PDPT, PD, or
// PT all share this shape.
type Table [entries]uint64

// FrameSource is the subset of mem.Allocator the page-table manager
// needs to grow page tables on demand.
type FrameSource interface {
	AllocFrame() (mem.Frame, defs.Err_t)
	FreeFrame(mem.Frame) defs.Err_t
}

// Space is one address space's PML4, identified by its physical
// frame. The zero value is not a valid space.
type Space struct {
	PML4 mem.Frame
}

// Manager owns every page table in the system and the registry that
// stands in for physically addressing them.
type Manager struct {
	mu sync.Mutex

	frames FrameSource
	store  map[mem.Frame]*Table

	kernelTemplate Table // entries 256..511 only; 0..255 always zero
	kaslrOffset    uint64
}

// NewManager creates a page-table manager over the given frame
// source. Call SetKernelTemplate once the kernel's own mappings
// (text/rodata/rune/data/bss, IDT, GDT/TSS) are known, before any
// Vessel calls CloneKernelMappings.
func NewManager(frames FrameSource) *Manager {
	return &Manager{
		frames: frames,
		store:  make(map[mem.Frame]*Table),
	}
}

func (m *Manager) table(f mem.Frame) *Table {
	t, ok := m.store[f]
	if !ok {
		t = &Table{}
		m.store[f] = t
	}
	return t
}

// NewSpace allocates a fresh PML4 and clones the shared kernel half
// into it (§4.2's clone_kernel_mappings); entries 0..255 are left
// zero, reserved for the owning Vessel.
func (m *Manager) NewSpace() (*Space, defs.Err_t) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.frames.AllocFrame()
	if err != 0 {
		return nil, err
	}
	sp := &Space{PML4: f}
	m.cloneKernelMappingsLocked(sp)
	return sp, 0
}

// CloneKernelMappings copies PML4 entries 256..511 by value into sp's
// table (§4.2). It is exported separately from NewSpace so a Vessel's
// address space can be re-synced after the kernel template changes
// (e.g. after Wards seals .rune, §4.6 step 3 happens before any Vessel
// is moored, but the contract is idempotent).
func (m *Manager) CloneKernelMappings(sp *Space) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cloneKernelMappingsLocked(sp)
}

func (m *Manager) cloneKernelMappingsLocked(sp *Space) {
	t := m.table(sp.PML4)
	for i := kernelFirst; i < entries; i++ {
		t[i] = m.kernelTemplate[i]
	}
}

// SetKernelTemplate installs the canonical kernel-half PML4 entries.
// Every existing and future Space's upper half is copied from this by
// value; because the copied entries still point at the same PDPT
// frames, the underlying page tables are shared by reference exactly
// as spec.md §3's ownership rules require — only the top-level PML4
// page itself is ever duplicated.
func (m *Manager) SetKernelTemplate(t Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := kernelFirst; i < entries; i++ {
		m.kernelTemplate[i] = t[i]
	}
}

// canonical reports whether virt has bits 48..63 all equal, as x86-64
// requires (§4.2 edge cases).
func canonical(virt uint64) bool {
	top := virt >> 47
	return top == 0 || top == 0x1FFFF
}

func split(virt uint64) (pml4i, pdpti, pdi, pti int, off uint64) {
	return int((virt >> 39) & 0x1FF),
		int((virt >> 30) & 0x1FF),
		int((virt >> 21) & 0x1FF),
		int((virt >> 12) & 0x1FF),
		virt & 0xFFF
}

// walkCreate descends the hierarchy, allocating intermediate tables
// as needed, stopping one level above the leaf (PT, unless huge is
// true in which case it stops at the PD). It never allocates the leaf
// itself — that decision belongs to the caller (Map installs it,
// Walk/Unmap only read it).
func (m *Manager) walkCreate(sp *Space, virt uint64, huge, create bool) (leaf *Table, idx int, err defs.Err_t) {
	pml4i, pdpti, pdi, pti, _ := split(virt)

	pml4 := m.table(sp.PML4)
	pdptFrame, e := m.descend(pml4, pml4i, create)
	if e != 0 {
		return nil, 0, e
	}
	if huge {
		// 2 MiB pages terminate at the PD level.
		pdpt := m.table(pdptFrame)
		pdFrame, e := m.descend(pdpt, pdpti, create)
		if e != 0 {
			return nil, 0, e
		}
		return m.table(pdFrame), pdi, 0
	}

	pdpt := m.table(pdptFrame)
	pdFrame, e := m.descend(pdpt, pdpti, create)
	if e != 0 {
		return nil, 0, e
	}
	pd := m.table(pdFrame)
	ptFrame, e := m.descend(pd, pdi, create)
	if e != 0 {
		return nil, 0, e
	}
	return m.table(ptFrame), pti, 0
}

// descend reads (or creates) the table frame referenced by parent[i].
func (m *Manager) descend(parent *Table, i int, create bool) (mem.Frame, defs.Err_t) {
	e := parent[i]
	if e&uint64(Present) != 0 {
		return mem.Frame(e & addrMask), 0
	}
	if !create {
		return 0, defs.ENOTMAPPED
	}
	f, err := m.frames.AllocFrame()
	if err != 0 {
		return 0, err
	}
	parent[i] = uint64(f) | uint64(Present|Writable|User)
	return f, 0
}

// Map installs a 4 KiB or 2 MiB mapping (huge selects which). It
// refuses Writable∧¬NX (W^X, §4.2/§8 invariant 2) before touching any
// table, and fails with AlreadyMapped if the virtual address already
// has a present mapping whose flags differ from the requested ones.
func (m *Manager) Map(sp *Space, virt uint64, phys mem.Frame, flags Flags, huge bool) defs.Err_t {
	if !canonical(virt) {
		return defs.EINVAL
	}
	if flags.has(Writable) && !flags.has(NX) {
		return defs.EWX
	}
	if flags.has(User) && flags.has(Global) {
		// §8 invariant 1: User=1 implies Global=0. Refuse rather than
		// silently drop the bit.
		return defs.EINVAL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	leaf, idx, err := m.walkCreate(sp, virt, huge, true)
	if err != 0 {
		return err
	}
	cur := leaf[idx]
	newVal := uint64(phys) | uint64(flags|Present)
	if huge {
		newVal |= uint64(PageSize2M)
	}
	if cur&uint64(Present) != 0 {
		if cur == newVal {
			return 0 // idempotent refresh
		}
		return defs.EALREADYMAPPED
	}
	leaf[idx] = newVal
	return 0
}

// Unmap removes a mapping and returns the frame that backed it so the
// caller can free it (§4.2). TLB invalidation is represented by
// flushTLB, a function variable so tests can observe it without real
// hardware (gopher-os-gopher-os/kernel/mem/vmm/pdt.go's pattern).
func (m *Manager) Unmap(sp *Space, virt uint64) (mem.Frame, defs.Err_t) {
	if !canonical(virt) {
		return 0, defs.EINVAL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	leaf, idx, err := m.walkCreate(sp, virt, false, false)
	if err != 0 {
		return 0, err
	}
	cur := leaf[idx]
	if cur&uint64(Present) == 0 {
		return 0, defs.ENOTMAPPED
	}
	leaf[idx] = 0
	flushTLB(virt)
	return mem.Frame(cur & addrMask), 0
}

// Walk returns the mapping for virt, or ok=false if none exists.
func (m *Manager) Walk(sp *Space, virt uint64) (phys mem.Frame, flags Flags, ok bool) {
	if !canonical(virt) {
		return 0, 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	leaf, idx, err := m.walkCreate(sp, virt, false, false)
	if err != 0 {
		return 0, 0, false
	}
	e := leaf[idx]
	if e&uint64(Present) == 0 {
		return 0, 0, false
	}
	return mem.Frame(e & addrMask), Flags(e &^ addrMask), true
}

// PhysToVirt implements the constant direct-map formula. It is only
// meaningful for frames inside the kernel's direct-map region;
// callers are responsible for that precondition.
func (m *Manager) PhysToVirt(p mem.Frame) uint64 {
	m.mu.Lock()
	off := m.kaslrOffset
	m.mu.Unlock()
	return KernelBase + off + uint64(p)
}

// SealRange clears the Writable bit on every PTE covering
// [virtStart, virtStart+size) and flushes each page's TLB entry
// (§4.2, used on .rune after boot per §4.6). Both bounds must be page
// aligned.
func (m *Manager) SealRange(sp *Space, virtStart, size uint64) defs.Err_t {
	if virtStart%mem.PageSize != 0 || size%mem.PageSize != 0 {
		return defs.EINVAL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for off := uint64(0); off < size; off += mem.PageSize {
		v := virtStart + off
		leaf, idx, err := m.walkCreate(sp, v, false, false)
		if err != 0 {
			continue // unmapped holes inside the range are not an error
		}
		e := leaf[idx]
		if e&uint64(Present) == 0 {
			continue
		}
		leaf[idx] = e &^ uint64(Writable)
		flushTLB(v)
	}
	return 0
}

// InstallKASLRAlias records the randomized direct-map offset (§4.6)
// so subsequent PhysToVirt calls land in the aliased region. It only
// records the offset: it does not install or duplicate any mappings,
// and boot is not read. RemoveIdentityMap
// should be called once boot has executed its first instruction from
// the alias.
func (m *Manager) InstallKASLRAlias(boot *Space, offset uint64) {
	m.mu.Lock()
	m.kaslrOffset = offset
	m.mu.Unlock()
}

// RemoveIdentityMap clears PML4[0] (the boot identity map) on the
// given space, per §4.6: it must only be called after the CPU is
// already executing from the higher-half KASLR alias.
func (m *Manager) RemoveIdentityMap(sp *Space) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table(sp.PML4)[0] = 0
}

// flushTLB is a no-op by default; UseRealINVLPG points it at INVLPG, a
// single instruction with no meaningful Go-level contract.
var flushTLB = func(virt uint64) {}
