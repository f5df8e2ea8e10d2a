// Package ward implements the MMU hardening layer of spec.md §4.6:
// SMEP/SMAP enablement (EnableHardening does not set EFER.NXE), the validated MortalPointer[T] handle, the
// stac/clac-bracketed user-memory copy primitives, and recognition of
// faults against the sealed .rune region.
//
// The "validate the address, then touch user memory" shape matches
// the classic unsealed-address-space copy helper pattern: validate
// bounds first, touch memory only after. CPU feature detection
// reimplements CPUID directly
// (cpuid_amd64.s) rather than reaching for golang.org/x/sys/cpu,
// because that package's exported X86 feature flags are scoped to
// userspace vector/crypto extensions and do not expose the
// supervisor-only SMEP/SMAP leaf bits this layer needs; the asm stub
// follows the same leaf-function, register-clobbering shape as
// entropy/rdrand_amd64.s.
package ward

import (
	"bytes"
	"encoding/binary"

	"aethelos/defs"
	"aethelos/pagetable"
)

// UserHalfLimit is the exclusive upper bound of the canonical user
// address half (§4.7): [0, UserHalfLimit).
const UserHalfLimit = 0x0000_8000_0000_0000

// MortalPointer is a validated user-space pointer: addr and size are
// guaranteed, at construction, to fit inside the user half without
// overflow (§4.6).
type MortalPointer[T any] struct {
	addr uint64
	size uint64
}

// Addr returns the validated user address.
func (p MortalPointer[T]) Addr() uint64 { return p.addr }

// Size returns the validated region size in bytes.
func (p MortalPointer[T]) Size() uint64 { return p.size }

func sizeOf[T any]() (uint64, defs.Err_t) {
	var zero T
	n := binary.Size(zero)
	if n < 0 {
		return 0, defs.EINVAL
	}
	return uint64(n), 0
}

// NewMortalPointer validates addr for a value of type T and returns
// the handle, or EPTRRANGE if addr+size escapes [0, UserHalfLimit) or
// overflows.
func NewMortalPointer[T any](addr uint64) (MortalPointer[T], defs.Err_t) {
	size, err := sizeOf[T]()
	if err != 0 {
		return MortalPointer[T]{}, err
	}
	end := addr + size
	if end < addr || end > UserHalfLimit {
		return MortalPointer[T]{}, defs.EPTRRANGE
	}
	return MortalPointer[T]{addr: addr, size: size}, 0
}

// NewMortalPointerN validates a runtime-sized byte range the way
// NewMortalPointer validates a fixed-size T: addr+n must fit in
// [0, UserHalfLimit) without overflow. This is the constructor the
// variable-length syscalls (write, read, test_smap) use, since their
// length comes from a syscall argument register rather than a Go
// type's static size.
func NewMortalPointerN(addr, n uint64) (MortalPointer[byte], defs.Err_t) {
	end := addr + n
	if end < addr || end > UserHalfLimit {
		return MortalPointer[byte]{}, defs.EPTRRANGE
	}
	return MortalPointer[byte]{addr: addr, size: n}, 0
}

// UserMemory is the byte-addressable backing store a MortalPointer
// range is copied against. A real build's implementation walks the
// Vessel's page tables and the kernel's direct map; tests use a plain
// byte slice.
type UserMemory interface {
	ReadAt(addr, n uint64) ([]byte, defs.Err_t)
	WriteAt(addr uint64, data []byte) defs.Err_t
}

// stac and clac bracket every user-memory touch. On real hardware
// these are the single-instruction AC-flag primitives; here they are
// overridable hooks so tests can assert the bracketing discipline
// without hardware.
var (
	stac = func() {}
	clac = func() {}
)

// SanctifiedCopyFromUser reads the value addressed by ptr out of mem,
// bracketed by stac/clac (§4.6). The bracket is scoped to this single
// call and never left open across a return.
func SanctifiedCopyFromUser[T any](mem UserMemory, ptr MortalPointer[T]) (T, defs.Err_t) {
	var zero T
	stac()
	buf, err := mem.ReadAt(ptr.addr, ptr.size)
	clac()
	if err != 0 {
		return zero, err
	}
	var out T
	if rerr := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &out); rerr != nil {
		return zero, defs.EFAULT
	}
	return out, 0
}

// SanctifiedCopyToUser writes value to the region addressed by ptr,
// symmetric with SanctifiedCopyFromUser.
func SanctifiedCopyToUser[T any](mem UserMemory, value T, ptr MortalPointer[T]) defs.Err_t {
	buf := new(bytes.Buffer)
	if werr := binary.Write(buf, binary.LittleEndian, value); werr != nil {
		return defs.EFAULT
	}
	stac()
	err := mem.WriteAt(ptr.addr, buf.Bytes())
	clac()
	return err
}

// SanctifiedCopyBytesFromUser reads the range addressed by ptr out of
// mem, bracketed by stac/clac. It is the variable-length sibling of
// SanctifiedCopyFromUser, used by syscalls like write(fd, buf, len)
// whose length is a runtime argument rather than a fixed Go type;
// ptr must come from NewMortalPointerN so the range is already bounds
// checked before mem ever sees it.
func SanctifiedCopyBytesFromUser(mem UserMemory, ptr MortalPointer[byte]) ([]byte, defs.Err_t) {
	stac()
	buf, err := mem.ReadAt(ptr.addr, ptr.size)
	clac()
	return buf, err
}

// SanctifiedCopyBytesToUser writes data to the range addressed by
// ptr, bracketed by stac/clac. ptr must come from NewMortalPointerN.
func SanctifiedCopyBytesToUser(mem UserMemory, ptr MortalPointer[byte], data []byte) defs.Err_t {
	stac()
	err := mem.WriteAt(ptr.addr, data)
	clac()
	return err
}

// cr4SMEP and cr4SMAP are the real CR4 bit positions spec.md §4.6
// names.
const (
	cr4SMEP = 1 << 20
	cr4SMAP = 1 << 21
)

// Wards owns MMU-hardening state: which CR4 protections are active,
// and the page-table manager it seals .rune through.
type Wards struct {
	pt   *pagetable.Manager
	cr4  uint64
	sealed bool
}

// New builds a Wards layer over the given page-table manager.
func New(pt *pagetable.Manager) *Wards {
	return &Wards{pt: pt}
}

// EnableHardening detects SMEP/SMAP via CPUID leaf 7 and sets the
// corresponding simulated CR4 bits when the CPU supports them (§4.6
// step 1). It reports which were enabled.
func (w *Wards) EnableHardening() (smep, smap bool) {
	_, ebx, _, _ := cpuid(7, 0)
	smep = ebx&(1<<7) != 0
	smap = ebx&(1<<20) != 0
	if smep {
		w.cr4 |= cr4SMEP
	}
	if smap {
		w.cr4 |= cr4SMAP
	}
	return smep, smap
}

// CR4 returns the simulated control-register value EnableHardening
// has built up, for diagnostics and tests.
func (w *Wards) CR4() uint64 { return w.cr4 }

// SealRune seals the kernel's .rune section read-only (§4.6 step 3):
// after this call, any write to the range faults, and the fault
// handler's sealed-write recognition (see Wards.IsSealedFault) tags
// the cause. Seal must only be called once all static kernel state
// (IDT, GDT/TSS, syscall table, policy flags) has been populated.
func (w *Wards) SealRune(sp *pagetable.Space, virtStart, size uint64) defs.Err_t {
	if err := w.pt.SealRange(sp, virtStart, size); err != 0 {
		return err
	}
	w.sealed = true
	return 0
}

// IsSealedFault reports whether a faulting write address falls inside
// a range Wards has sealed. The page-fault handler in the interrupt
// package uses this to distinguish a sealed-write fault (fatal, §4.6)
// from an ordinary demand-paging fault.
func (w *Wards) IsSealedFault(sp *pagetable.Space, faultAddr uint64) bool {
	if !w.sealed {
		return false
	}
	_, flags, ok := w.pt.Walk(sp, faultAddr&^uint64(0xFFF))
	if !ok {
		return false
	}
	return !flags.Has(pagetable.Writable)
}
