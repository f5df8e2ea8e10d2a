//go:build amd64

package interrupt

import (
	"encoding/binary"
	"unsafe"
)

// lidtAsm is implemented in lidt_amd64.s.
func lidtAsm(descriptorAddr uint64)

// lidt is overridable for hosted tests, same shape as every other
// privileged-instruction hook in this repo (wrmsr, stac/clac, INVLPG,
// port I/O). It takes the address of a packed {limit uint16; base
// uint64} operand, exactly what the LIDT instruction dereferences.
var lidt = func(descriptorAddr uint64) {}

// UseRealLIDT points lidt at the real LIDT instruction. LIDT is
// ring-0-only, so this is never called automatically; bootglue calls
// it once the IDT is fully populated.
func UseRealLIDT() {
	lidt = lidtAsm
}

// Load installs d via LIDT. The operand must be exactly 10 bytes
// (limit immediately followed by base, no gap), which a Go struct
// cannot guarantee due to uint64 alignment padding, so it is built as
// a raw byte array instead.
func Load(d Descriptor) {
	var operand [10]byte
	binary.LittleEndian.PutUint16(operand[0:2], d.Limit)
	binary.LittleEndian.PutUint64(operand[2:10], d.Base)
	lidt(uint64(uintptr(unsafe.Pointer(&operand[0]))))
}
