//go:build amd64

package interrupt

// isrPageFaultAsm, isrTimerAsm and isrKeyboardAsm are implemented in
// isr_amd64.s; they are installed directly at the IDT gates below and
// never called from Go.
func isrPageFaultAsm()
func isrTimerAsm()
func isrKeyboardAsm()

func pageFaultEntryAddr() uintptr
func timerEntryAddr() uintptr
func keyboardEntryAddr() uintptr

// PageFaultEntryPoint, TimerEntryPoint and KeyboardEntryPoint return
// the real code addresses bootglue installs into the IDT via
// Table.SetGate for VectorPageFault, VectorTimer and VectorKeyboard.
func PageFaultEntryPoint() uintptr { return pageFaultEntryAddr() }
func TimerEntryPoint() uintptr     { return timerEntryAddr() }
func KeyboardEntryPoint() uintptr  { return keyboardEntryAddr() }
