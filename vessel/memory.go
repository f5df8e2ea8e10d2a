package vessel

import (
	"sync"

	"aethelos/defs"
	"aethelos/mem"
)

// Memory is a Vessel's user address space content, keyed by
// page-aligned virtual address. A hosted build has no physical RAM to
// back page-table mappings with real bytes, so the ELF loader and the
// Ward copy primitives both read and write through this page map
// instead; it implements ward.UserMemory.
type Memory struct {
	mu    sync.Mutex
	pages map[uint64][]byte
}

func newMemory() *Memory {
	return &Memory{pages: make(map[uint64][]byte)}
}

func pageOf(addr uint64) uint64 { return addr &^ (mem.PageSize - 1) }

// installPage stores data (zero-padded to one page) at the page
// containing vaddr. Used by the ELF loader; not part of the
// ward.UserMemory contract since userspace never installs a page,
// only reads/writes within one.
func (m *Memory) installPage(vaddr uint64, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := make([]byte, mem.PageSize)
	copy(page, data)
	m.pages[pageOf(vaddr)] = page
}

// ReadAt implements ward.UserMemory.
func (m *Memory) ReadAt(addr, n uint64) ([]byte, defs.Err_t) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, n)
	var copied uint64
	for copied < n {
		cur := addr + copied
		page, ok := m.pages[pageOf(cur)]
		if !ok {
			return nil, defs.EFAULT
		}
		off := cur - pageOf(cur)
		n2 := copy(out[copied:], page[off:])
		copied += uint64(n2)
	}
	return out, 0
}

// WriteAt implements ward.UserMemory.
func (m *Memory) WriteAt(addr uint64, data []byte) defs.Err_t {
	m.mu.Lock()
	defer m.mu.Unlock()
	var copied int
	for copied < len(data) {
		cur := addr + uint64(copied)
		page, ok := m.pages[pageOf(cur)]
		if !ok {
			return defs.EFAULT
		}
		off := cur - pageOf(cur)
		n2 := copy(page[off:], data[copied:])
		copied += n2
	}
	return 0
}
