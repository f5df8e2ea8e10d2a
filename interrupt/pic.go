package interrupt

import "aethelos/console"

// Legacy 8259 PIC I/O ports and remap/EOI constants. No I/O-APIC
// driver exists in this tree, so this remaps the classic dual-8259
// pair instead — the textbook equivalent every x86 hobby kernel uses
// when no APIC driver is available, naming the operations
// Mask/Unmask/EOI the way an APIC driver would.
const (
	picMasterCommand = 0x20
	picMasterData    = 0x21
	picSlaveCommand  = 0xA0
	picSlaveData     = 0xA1

	icw1Init     = 0x11 // edge-triggered, cascade, ICW4 needed
	icw4_8086    = 0x01
	picEOI       = 0x20

	// IRQBase is the vector the master PIC's IRQ0 is remapped to
	// (VectorTimer); IRQ8..15 on the slave follow at IRQBase+8.
	IRQBase = VectorTimer
)

// RemapPIC reprograms both 8259s so IRQ0-15 land on IRQBase..IRQBase+15
// instead of their power-on default of 8-15 (which collides with CPU
// exception vectors), then masks every line — callers unmask the ones
// they actually service (timer, keyboard).
func RemapPIC() {
	console.OutB(picMasterCommand, icw1Init)
	console.OutB(picSlaveCommand, icw1Init)
	console.OutB(picMasterData, IRQBase)
	console.OutB(picSlaveData, IRQBase+8)
	console.OutB(picMasterData, 1<<2) // tell master: slave on IRQ2
	console.OutB(picSlaveData, 2)     // tell slave its cascade identity
	console.OutB(picMasterData, icw4_8086)
	console.OutB(picSlaveData, icw4_8086)

	console.OutB(picMasterData, 0xFF)
	console.OutB(picSlaveData, 0xFF)
}

// UnmaskIRQ clears irq's mask bit on whichever PIC owns it.
func UnmaskIRQ(irq int) {
	port := uint16(picMasterData)
	line := irq
	if irq >= 8 {
		port = picSlaveData
		line -= 8
	}
	mask := console.InB(port)
	console.OutB(port, mask&^(1<<uint(line)))
}

// MaskIRQ sets irq's mask bit, the mirror of UnmaskIRQ.
func MaskIRQ(irq int) {
	port := uint16(picMasterData)
	line := irq
	if irq >= 8 {
		port = picSlaveData
		line -= 8
	}
	mask := console.InB(port)
	console.OutB(port, mask|(1<<uint(line)))
}

// EOI acknowledges irq so the PIC delivers further interrupts on that
// line. A slave-PIC IRQ (8-15) needs an EOI sent to both PICs.
func EOI(irq int) {
	if irq >= 8 {
		console.OutB(picSlaveCommand, picEOI)
	}
	console.OutB(picMasterCommand, picEOI)
}
