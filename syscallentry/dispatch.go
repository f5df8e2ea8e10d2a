package syscallentry

import (
	"aethelos/defs"
	"aethelos/klog"
)

// Handler implements one syscall number. It receives the six argument
// registers in dispatcher order and returns the raw value to place in
// RAX (negative for error, per §4.7's dispatcher contract — Err_t's
// own Negate does this, but a handler may also return a non-negative
// count or value directly).
type Handler func(a1, a2, a3, a4, a5, a6 uint64) int64

// Numbers for the normative minimal syscall set (§4.7). The reserved
// range above these is left for IPC, memory, and filesystem calls: any
// number not in table falls through to ENOSYS.
const (
	SysExit = iota
	SysWrite
	SysRead
	SysYield
	SysGetTime
	SysCreateThread
	SysTestSMAP
)

// Dispatcher is the syscall number -> Handler table (§4.7).
type Dispatcher struct {
	table map[uint64]Handler
}

// NewDispatcher builds an empty dispatcher; callers register handlers
// with Register (or use NewDefaultDispatcher for the normative set).
func NewDispatcher() *Dispatcher {
	return &Dispatcher{table: make(map[uint64]Handler)}
}

// Register installs h for syscall number num, replacing any existing
// handler.
func (d *Dispatcher) Register(num uint64, h Handler) {
	d.table[num] = h
}

// Dispatch implements the dispatcher contract of §4.7: looks up num in
// table and calls it with the six argument registers, or returns
// ENOSYS.Negate() for an unregistered number.
func (d *Dispatcher) Dispatch(num, a1, a2, a3, a4, a5, a6 uint64) int64 {
	h, ok := d.table[num]
	if !ok {
		klog.For("syscallentry", 0, 0).WithField("num", num).Warn("unimplemented syscall")
		return defs.ENOSYS.Negate()
	}
	return h(a1, a2, a3, a4, a5, a6)
}

// DispatchFrame is the entry trampoline's call-in point (§4.7 step 4):
// it reads the syscall number and arguments out of f and writes the
// result back into f.RAX for the trampoline to restore into RAX
// before sysretq.
func (d *Dispatcher) DispatchFrame(f *SaveFrame) {
	a1, a2, a3, a4, a5, a6 := f.Args()
	f.RAX = d.Dispatch(f.RAX, a1, a2, a3, a4, a5, a6)
}
