package interrupt

import "aethelos/console"

// KeyboardIRQ forwards VectorKeyboard interrupts to a console.Keyboard:
// it reads the waiting scancode off the PS/2 data port and hands it
// off for Set-1 decoding, matching the retrieved kernel's
// trapstub-to-kbd_daemon handoff minus the goroutine.
type KeyboardIRQ struct {
	KB *console.Keyboard
}

// NewKeyboardIRQ builds a KeyboardIRQ handler feeding kb.
func NewKeyboardIRQ(kb *console.Keyboard) *KeyboardIRQ {
	return &KeyboardIRQ{KB: kb}
}

const ps2DataPort = 0x60

// Handle is the VectorKeyboard handler.
func (k *KeyboardIRQ) Handle(regs *Regs, frame *Frame, errorCode uint64) {
	scancode := console.InB(ps2DataPort)
	k.KB.Feed(scancode)
}
