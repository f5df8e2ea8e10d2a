package interrupt

// Handler processes one vector's trap with the register/frame state
// the common entry stub captured, and the CPU-pushed error code
// (0 for exceptions/IRQs that don't push one).
type Handler func(regs *Regs, frame *Frame, errorCode uint64)

// Dispatcher routes a vector number to its registered Handler. Unlike
// syscallentry's single flat table (every syscall number is equally
// valid), most of the 256 IDT vectors here are simply unused — an
// unregistered vector is a silent no-op rather than an ENOSYS-style
// reported error, since at this level "unexpected interrupt" is itself
// the condition a real boot would treat as fatal, which is
// bootglue's (not this package's) call to make.
type Dispatcher struct {
	handlers [idtEntries]Handler
}

// NewDispatcher builds an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register installs h as vector's handler.
func (d *Dispatcher) Register(vector uint8, h Handler) {
	d.handlers[vector] = h
}

// Dispatch calls vector's handler, if any, then sends EOI if vector is
// an IRQ (>= IRQBase) the PIC is still waiting to hear back from.
func (d *Dispatcher) Dispatch(vector uint8, errorCode uint64, regs *Regs, frame *Frame) {
	if h := d.handlers[vector]; h != nil {
		h(regs, frame, errorCode)
	}
	if int(vector) >= IRQBase {
		EOI(int(vector) - IRQBase)
	}
}
