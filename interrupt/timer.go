package interrupt

import (
	"sync"

	"aethelos/defs"
	"aethelos/loom"
)

// DefaultQuantumTicks is how many timer ticks a Weaving thread gets
// before §4.5's preemption path fires.
const DefaultQuantumTicks = 10

// Timer drives §4.5's preemptive quantum: every tick counts against
// the currently-scheduled thread, and exhausting it decays harmony
// and force-yields.
type Timer struct {
	Loom  *loom.Loom
	Ticks uint64 // quantum length, in ticks

	mu     sync.Mutex
	ticked map[defs.Tid_t]uint64
}

// NewTimer builds a Timer with the default quantum length.
func NewTimer(l *loom.Loom) *Timer {
	return &Timer{Loom: l, Ticks: DefaultQuantumTicks, ticked: make(map[defs.Tid_t]uint64)}
}

// Tick is the VectorTimer handler: one call per PIT/APIC interrupt.
func (tm *Timer) Tick(regs *Regs, frame *Frame, errorCode uint64) {
	t := tm.Loom.Current()
	if t == nil {
		return
	}

	tm.mu.Lock()
	tm.ticked[t.ID]++
	exhausted := tm.ticked[t.ID] >= tm.Ticks
	if exhausted {
		delete(tm.ticked, t.ID)
	}
	tm.mu.Unlock()

	if !exhausted {
		return
	}
	t.DecayQuantum()
	tm.Loom.YieldNow()
}
