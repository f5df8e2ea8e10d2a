// Package bootglue is the one place that is allowed to know about
// every other subsystem: it parses the Multiboot2 info structure GRUB
// hands the kernel, then brings every piece of spec.md's OVERVIEW
// data-flow line online in Boot's order — entropy, the frame
// allocator, page tables, the Mana Pool, the Wards, the Loom,
// interrupts, and finally the first moored Vessel.
package bootglue

import "encoding/binary"

// Multiboot2 tag types this kernel reads. The full tag vocabulary is
// much larger (modules, boot command line, ELF symbols, ...); only
// the two tags the boot sequence actually consumes are named, the
// same trimming gopher-os-gopher-os/kernel/hal/multiboot/multiboot.go
// itself does not do but which this kernel has no use for beyond.
type tagType uint32

const (
	tagMbSectionEnd  tagType = 0
	tagMemoryMap     tagType = 6
	tagFramebufferInfo tagType = 8
)

// MemoryEntryType classifies one MemoryMapEntry.
type MemoryEntryType uint32

const (
	MemAvailable MemoryEntryType = iota + 1
	MemReserved
	MemAcpiReclaimable
	MemNvs

	memUnknown
)

// MemoryMapEntry is one entry of the Multiboot2 memory map tag.
type MemoryMapEntry struct {
	PhysAddress uint64
	Length      uint64
	Type        MemoryEntryType
}

// FramebufferType is the Multiboot2 framebuffer tag's encoding of how
// pixels are represented.
type FramebufferType uint8

const (
	FramebufferTypeIndexed FramebufferType = iota
	FramebufferTypeRGB
	FramebufferTypeEGA
)

// FramebufferInfo is the Multiboot2 framebuffer tag's contents.
type FramebufferInfo struct {
	PhysAddr uint64
	Pitch    uint32
	Width    uint32
	Height   uint32
	Bpp      uint8
	Type     FramebufferType
}

// Info wraps the raw Multiboot2 info blob GRUB leaves at the address
// in EBX on kernel entry. Unlike
// gopher-os-gopher-os/kernel/hal/multiboot/multiboot.go, which walks
// the structure in place via unsafe.Pointer over physical memory, Info
// holds an ordinary []byte: bootglue's own entry stub (not yet
// written; out of scope for a hosted build) is responsible for
// copying totalSize bytes out of physical memory into a slice before
// constructing one of these, so every tag-walk here is plain,
// hosted-testable Go.
type Info struct {
	raw []byte
}

// NewInfo wraps raw, which must begin with the 8-byte Multiboot2 info
// header (total size, then a reserved dword) followed by the tag
// stream.
func NewInfo(raw []byte) *Info {
	return &Info{raw: raw}
}

// findTag scans the tag stream for the first tag of type want,
// returning its content (the bytes after the 8-byte tag header, up to
// but not including the next tag's 8-byte alignment padding) and
// whether it was found. Mirrors findTagByType's walk exactly, just
// over a slice instead of a raw pointer.
func (in *Info) findTag(want tagType) ([]byte, bool) {
	if len(in.raw) < 8 {
		return nil, false
	}
	pos := 8
	for pos+8 <= len(in.raw) {
		t := tagType(binary.LittleEndian.Uint32(in.raw[pos : pos+4]))
		size := binary.LittleEndian.Uint32(in.raw[pos+4 : pos+8])
		if t == tagMbSectionEnd {
			return nil, false
		}
		contentStart := pos + 8
		contentEnd := pos + int(size)
		if contentEnd > len(in.raw) || contentEnd < contentStart {
			return nil, false
		}
		if t == want {
			return in.raw[contentStart:contentEnd], true
		}
		// tags are 8-byte aligned
		pos += (int(size) + 7) &^ 7
	}
	return nil, false
}

// MemoryMap returns every region the Multiboot2 memory map tag
// describes, in the order GRUB reported them.
func (in *Info) MemoryMap() []MemoryMapEntry {
	content, ok := in.findTag(tagMemoryMap)
	if !ok || len(content) < 8 {
		return nil
	}
	entrySize := int(binary.LittleEndian.Uint32(content[0:4]))
	if entrySize < 24 {
		return nil
	}
	var entries []MemoryMapEntry
	for pos := 8; pos+entrySize <= len(content); pos += entrySize {
		typ := MemoryEntryType(binary.LittleEndian.Uint32(content[pos+16 : pos+20]))
		if typ == 0 || typ >= memUnknown {
			typ = MemReserved
		}
		entries = append(entries, MemoryMapEntry{
			PhysAddress: binary.LittleEndian.Uint64(content[pos : pos+8]),
			Length:      binary.LittleEndian.Uint64(content[pos+8 : pos+16]),
			Type:        typ,
		})
	}
	return entries
}

// Framebuffer returns the framebuffer tag's contents, if GRUB
// initialized one.
func (in *Info) Framebuffer() (FramebufferInfo, bool) {
	content, ok := in.findTag(tagFramebufferInfo)
	if !ok || len(content) < 22 {
		return FramebufferInfo{}, false
	}
	return FramebufferInfo{
		PhysAddr: binary.LittleEndian.Uint64(content[0:8]),
		Pitch:    binary.LittleEndian.Uint32(content[8:12]),
		Width:    binary.LittleEndian.Uint32(content[12:16]),
		Height:   binary.LittleEndian.Uint32(content[16:20]),
		Bpp:      content[20],
		Type:     FramebufferType(content[21]),
	}, true
}
