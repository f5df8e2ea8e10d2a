package interrupt

import "unsafe"

// Vector numbers this kernel actually handles. The rest of the 256-
// entry IDT is left as zero (not-present) entries; no common
// "unexpected vector" stub is built, though the table still reserves
// the full range.
const (
	VectorPageFault  = 14
	VectorGPFault    = 13
	VectorDoubleFault = 8

	VectorTimer    = 32 // IRQ0, after the standard PIC remap to 32-47
	VectorKeyboard = 33 // IRQ1
)

// idtEntries is the fixed IDT size on amd64.
const idtEntries = 256

// gateInterrupt is the IDT gate type for an interrupt gate (disables
// further interrupts on entry), present, ring 0 only.
const gateInterrupt = 0x8E

// Entry is one packed IDT gate descriptor, laid out exactly as the
// CPU requires (split 16/16/32-bit offset halves around the selector
// and type-attribute byte).
type Entry struct {
	OffsetLow  uint16
	Selector   uint16
	IST        uint8
	TypeAttr   uint8
	OffsetMid  uint16
	OffsetHigh uint32
	Zero       uint32
}

// Table is the full 256-entry IDT.
type Table [idtEntries]Entry

// SetGate packs handlerAddr into vector's descriptor, using selector
// (the kernel code segment) and ist (0 for "use the current stack",
// 1-7 to select an IST stack slot — the double-fault vector should use
// a dedicated IST slot so a fault on an already-corrupt kernel stack
// still has somewhere to land).
func (t *Table) SetGate(vector uint8, handlerAddr uint64, selector uint16, ist uint8) {
	t[vector] = Entry{
		OffsetLow:  uint16(handlerAddr),
		Selector:   selector,
		IST:        ist & 0x7,
		TypeAttr:   gateInterrupt,
		OffsetMid:  uint16(handlerAddr >> 16),
		OffsetHigh: uint32(handlerAddr >> 32),
	}
}

// Descriptor is the LIDT operand: table size minus one, and its base
// address.
type Descriptor struct {
	Limit uint16
	Base  uint64
}

// DescriptorFor builds the LIDT operand for t. Unlike an assembly
// symbol's address (see syscallentry.EntryPoint), a Go struct's
// address is a plain pointer, so no asm leaf is needed to obtain it.
func DescriptorFor(t *Table) Descriptor {
	return Descriptor{
		Limit: uint16(idtEntries*16 - 1),
		Base:  uint64(uintptr(unsafe.Pointer(t))),
	}
}
