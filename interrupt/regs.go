// Package interrupt implements the IDT, legacy 8259 PIC glue, timer
// and keyboard IRQ forwarding, and the page-fault handler of spec.md
// §4.6/§4.7's surrounding trap machinery (the kernel cannot run
// userspace at all without some way to field exceptions and IRQs,
// even though spec.md leaves the exact mechanism unspecified).
//
// Regs and Frame mirror
// gopher-os-gopher-os/src/gopheros/kernel/irq/interrupt_amd64.go's
// register/exception-frame snapshot shape, adapted to this kernel's
// own register-naming convention (loom.Registers) instead of
// reinventing a third one.
package interrupt

// Regs is the general-purpose register snapshot an interrupt or
// exception handler receives, pushed by the common entry stub before
// the handler runs.
type Regs struct {
	RAX, RBX, RCX, RDX uint64
	RSI, RDI, RBP      uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64
}

// Frame is the exception frame the CPU itself pushes on any trap. In
// 64-bit mode the CPU pushes RIP/CS/RFLAGS/RSP/SS on every trap, with
// or without a privilege change, so the entry stubs pass it to a
// handler as-is and handlers never need to special-case a same-ring
// trap.
type Frame struct {
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}
