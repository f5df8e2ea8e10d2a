package interrupt

// Trap is the register/frame snapshot a vector with no CPU-pushed
// error code (the timer and keyboard IRQs) receives.
type Trap struct {
	Regs
	Frame
}

// TrapWithCode is Trap plus the hardware-pushed error code, landing
// between Regs and Frame in memory exactly where the CPU places it —
// the page-fault vector is the only one of the three this kernel
// handles that carries one.
type TrapWithCode struct {
	Regs
	ErrorCode uint64
	Frame
}

// activeDispatcher is the Dispatcher every ISR stub's trampoline
// forwards to, set once by bootglue after the IDT is loaded. Nil
// until then, so a stray trap before that point is a silent no-op
// rather than a nil-pointer panic.
var activeDispatcher *Dispatcher

// SetActiveDispatcher installs d as the target of every ISR
// trampoline below.
func SetActiveDispatcher(d *Dispatcher) {
	activeDispatcher = d
}

//go:nosplit
func pageFaultTrampoline(tr *TrapWithCode) {
	if activeDispatcher == nil {
		return
	}
	activeDispatcher.Dispatch(VectorPageFault, tr.ErrorCode, &tr.Regs, &tr.Frame)
}

//go:nosplit
func timerTrampoline(tr *Trap) {
	if activeDispatcher == nil {
		return
	}
	activeDispatcher.Dispatch(VectorTimer, 0, &tr.Regs, &tr.Frame)
}

//go:nosplit
func keyboardTrampoline(tr *Trap) {
	if activeDispatcher == nil {
		return
	}
	activeDispatcher.Dispatch(VectorKeyboard, 0, &tr.Regs, &tr.Frame)
}
