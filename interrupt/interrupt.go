package interrupt

// NewDefaultDispatcher wires f's page-fault handler, tm's timer tick,
// and kb's keyboard IRQ against a fresh Dispatcher, leaving every
// other vector unregistered (a silent no-op per Dispatch's contract).
func NewDefaultDispatcher(f *Faults, tm *Timer, kb *KeyboardIRQ) *Dispatcher {
	d := NewDispatcher()
	d.Register(VectorPageFault, f.PageFault)
	d.Register(VectorTimer, tm.Tick)
	d.Register(VectorKeyboard, kb.Handle)
	return d
}
