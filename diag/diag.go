// Package diag implements the fatal-panic path of spec.md §7/§8: a
// structured message (state, thread id, RIP, fault address, canary
// diff) to the console, followed by a halt that never returns.
//
// The message shape follows the classic tfdump/hexdump diagnostic
// dump, replacing a raw hex instruction dump with a real decode via
// golang.org/x/arch/x86/x86asm. Dedup tracks first occurrence per
// caller-supplied key for diagnostics that can legitimately repeat —
// a fatal Report itself never repeats, since Fatal halts the machine,
// but non-fatal recurring warnings (a user Vessel spamming the same
// fault) benefit from only logging the first occurrence of a key.
package diag

import (
	"fmt"
	"io"

	"golang.org/x/arch/x86/x86asm"
)

// Report is the structured content of a fatal panic message.
type Report struct {
	Reason     string
	ThreadID   uint64
	RIP        uint64
	FaultAddr  uint64
	HasCanary  bool
	CanaryWant byte
	CanaryGot  byte
	Code       []byte // bytes at RIP, for disassembly; may be nil
}

// Fatal writes r's structured message to out, then halts. It never
// returns to its caller under a real wiring of halt; the default,
// test-safe halt panics instead so tests can assert Fatal was reached
// without hanging the test binary.
func Fatal(out io.Writer, r Report) {
	fmt.Fprintf(out, "PANIC: %s\n", r.Reason)
	fmt.Fprintf(out, "  tid=%d rip=%#016x fault=%#016x\n", r.ThreadID, r.RIP, r.FaultAddr)
	if r.HasCanary {
		fmt.Fprintf(out, "  canary: want=%#02x got=%#02x\n", r.CanaryWant, r.CanaryGot)
	}
	if len(r.Code) > 0 {
		if inst, err := x86asm.Decode(r.Code, 64); err == nil {
			fmt.Fprintf(out, "  faulting instruction: %s\n", x86asm.GNUSyntax(inst, r.RIP, nil))
		} else {
			fmt.Fprintf(out, "  faulting instruction: <undecodable>\n")
		}
	}
	halt()
}

// halt is the point of no return. The default panics rather than
// looping forever, so hosted tests stay safe; UseRealHalt installs the
// real CLI+HLT loop, following the same explicit-opt-in shape as every
// other privileged hook in this repo.
var halt = func() {
	panic("diag: fatal halt")
}
