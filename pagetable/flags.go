package pagetable

// Flags are the per-PTE bits spec.md §3 lists: Present, Writable,
// User, Write-Through, Cache-Disable, Accessed, Dirty, PageSize (2
// MiB), Global, NX. The bit positions match the real x86-64 PTE
// layout.
type Flags uint64

const (
	Present      Flags = 1 << 0
	Writable     Flags = 1 << 1
	User         Flags = 1 << 2
	WriteThrough Flags = 1 << 3
	CacheDisable Flags = 1 << 4
	Accessed     Flags = 1 << 5
	Dirty        Flags = 1 << 6
	PageSize2M   Flags = 1 << 7
	Global       Flags = 1 << 8
	COW          Flags = 1 << 9  // software-defined: copy-on-write, not an architectural PTE bit
	NX           Flags = 1 << 63
)

// addrMask extracts bits 12..51, the physical address carried by a
// present entry.
const addrMask uint64 = 0x000f_ffff_ffff_f000

// has reports whether every bit in want is set in f.
func (f Flags) has(want Flags) bool { return f&want == want }

// Has reports whether every bit in want is set in f.
func (f Flags) Has(want Flags) bool { return f.has(want) }
