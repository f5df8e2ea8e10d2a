// Package loom implements the scheduler: thread lifecycle, the
// ready-queue selection policy (priority, then oldest last-run-time,
// then thread id), harmony accounting, and the context-switch
// bookkeeping contract (TSS.rsp0 and CR3 updates).
//
// The per-thread table is a mutex-guarded map[Tid_t]*Thread carrying the
// full register/scheduling state a context switch needs, not just a
// thread's liveness. The ready queue is a container/heap priority
// queue: no third-party library in reach ships a scheduling-specific
// priority-queue, and container/heap is the idiomatic stdlib tool for
// this, so it's a justified stdlib leaf.
//
// Resting is modeled as a single yield-time transient: YieldNow marks
// the outgoing thread Resting, selects strictly among the other
// already-Weaving ready-queue members (matching §4.5's "among Weaving
// (ready) threads, pick..."), then flips the outgoing thread back to
// Weaving and enqueues it. Wake moves a Tangled thread directly to
// Weaving and enqueues it, per the transition table.
package loom

import (
	"container/heap"

	"aethelos/defs"
	"aethelos/irqlock"
)

// State is one of the four thread lifecycle states of §4.5.
type State int

const (
	Weaving State = iota
	Resting
	Tangled
	Fading
)

// Registers is the full general-purpose register file a Context
// saves and restores (§3: "context carries the full general-purpose
// register file plus rip, rsp, cs, ss, rflags, cr3").
type Registers struct {
	RAX, RBX, RCX, RDX uint64
	RSI, RDI, RBP      uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64
}

// Context is a thread's saved execution state.
type Context struct {
	Regs   Registers
	RIP    uint64
	RSP    uint64
	CS     uint64
	SS     uint64
	RFLAGS uint64
	CR3    uint64
}

// Thread is the scheduling unit of §3.
type Thread struct {
	ID       defs.Tid_t
	State    State
	Priority int
	Context  Context

	KernelStackBottom uint64
	KernelStackTop    uint64
	Sigil             uint64 // per-thread stack canary

	VesselID *defs.VesselId // nil for a kernel thread

	HarmonyScore float64
	Yields       uint64
	LastRunTime  uint64

	heapIndex int // position in the ready heap; -1 when not queued
}

const (
	harmonyIncrement = 0.05
	harmonyDecrement = 0.10
	harmonyMax       = 1.0
	harmonyMin       = 0.0
)

// readyQueue is a container/heap priority queue ordered by the
// selection rule of §4.5: highest priority bucket, then oldest
// last_run_time, then ascending thread id.
type readyQueue []*Thread

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.Priority != b.Priority {
		return a.Priority > b.Priority // higher priority first
	}
	if a.LastRunTime != b.LastRunTime {
		return a.LastRunTime < b.LastRunTime // oldest first
	}
	return a.ID < b.ID
}

func (q readyQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].heapIndex = i
	q[j].heapIndex = j
}

func (q *readyQueue) Push(x any) {
	t := x.(*Thread)
	t.heapIndex = len(*q)
	*q = append(*q, t)
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIndex = -1
	*q = old[:n-1]
	return t
}

// Loom is the scheduler: the thread table, the ready queue, and the
// currently-executing thread.
type Loom struct {
	mu irqlock.Lock

	threads map[defs.Tid_t]*Thread
	nextID  uint64
	ready   readyQueue

	idle    *Thread
	current *Thread
	clock   uint64 // logical tick, advanced once per scheduling decision
}

// New builds an empty Loom. Call SetIdleThread once the idle thread
// has been created so SelectNext has a fallback (§4.5 step 3).
func New() *Loom {
	return &Loom{threads: make(map[defs.Tid_t]*Thread)}
}

// CreateThread allocates a new thread in state Resting (ready, not
// yet running) and enqueues it. Allocation failure leaves no partial
// thread behind (§4.5 failure semantics): the thread is only
// registered once every field is set.
func (l *Loom) CreateThread(priority int, vesselID *defs.VesselId, kstackBottom, kstackTop uint64) *Thread {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	t := &Thread{
		ID:                defs.Tid_t(l.nextID),
		State:             Resting,
		Priority:          priority,
		VesselID:          vesselID,
		KernelStackBottom: kstackBottom,
		KernelStackTop:    kstackTop,
		heapIndex:         -1,
	}
	l.threads[t.ID] = t
	heap.Push(&l.ready, t)
	return t
}

// SetIdleThread registers the fallback thread SelectNext returns when
// the ready queue is empty. If t is in the ready queue (as a thread
// made by CreateThread is), it is taken out, and the Loom never
// pushes the idle thread back onto it.
func (l *Loom) SetIdleThread(t *Thread) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.heapIndex >= 0 {
		heap.Remove(&l.ready, t.heapIndex)
	}
	l.idle = t
	l.threads[t.ID] = t
}

// Current returns the currently-executing thread, or nil before the
// first SelectNext.
func (l *Loom) Current() *Thread {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Snapshot returns every thread currently in the thread table,
// including the idle thread, for the profile package's accounting
// export. The returned slice is a copy of the table; the *Thread
// values themselves are shared, matching the fields-are-already-
// synchronized shape of Thread.HarmonyScore/Yields.
func (l *Loom) Snapshot() []*Thread {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Thread, 0, len(l.threads))
	for _, t := range l.threads {
		out = append(out, t)
	}
	return out
}

// selectNextLocked implements §4.5's Selection: reclaim Fading
// threads lazily, then pop the highest-priority, oldest-last-run,
// lowest-id ready thread, or fall back to idle.
func (l *Loom) selectNextLocked() *Thread {
	for l.ready.Len() > 0 {
		t := heap.Pop(&l.ready).(*Thread)
		if t.State == Fading {
			delete(l.threads, t.ID)
			continue
		}
		l.clock++
		t.State = Weaving
		t.LastRunTime = l.clock
		l.current = t
		return t
	}
	if l.idle != nil {
		l.clock++
		l.idle.LastRunTime = l.clock
		l.current = l.idle
	}
	return l.idle
}

// SelectNext is the public entry point for an initial schedule (boot
// choosing the first thread to run) outside of a yield/block call.
func (l *Loom) SelectNext() *Thread {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selectNextLocked()
}

// YieldNow implements the voluntary-yield half of §4.5's context
// switch: the running thread is marked Resting, harmony accounting
// runs, a new thread is selected from the existing ready queue, and
// the yielding thread is then folded back in as Weaving/ready.
//
// It returns (from, to); the caller (the real syscall/trap path) is
// responsible for the actual register save/restore and the
// CR3/TSS.rsp0 writes that ContextSwitch below describes.
func (l *Loom) YieldNow() (from, to *Thread) {
	l.mu.Lock()
	defer l.mu.Unlock()

	from = l.current
	isIdle := from != nil && from == l.idle
	if from != nil && !isIdle && from.State == Weaving {
		from.State = Resting
		from.Yields++
		from.HarmonyScore += harmonyIncrement
		if from.HarmonyScore > harmonyMax {
			from.HarmonyScore = harmonyMax
		}
	}

	to = l.selectNextLocked()

	if from != nil && !isIdle && from.State == Resting {
		from.State = Weaving
		heap.Push(&l.ready, from)
	}
	return from, to
}

// DecayQuantum implements §4.5's preemption-path harmony decay: a
// full quantum consumed without a yield decays harmony_score toward
// zero. Called by the timer-tick handler when preemption fires.
func (t *Thread) DecayQuantum() {
	t.HarmonyScore -= harmonyDecrement
	if t.HarmonyScore < harmonyMin {
		t.HarmonyScore = harmonyMin
	}
}

// Block transitions the current thread to Tangled (blocked on IPC
// receive or timer sleep) and selects a replacement.
func (l *Loom) Block() (from, to *Thread) {
	l.mu.Lock()
	defer l.mu.Unlock()
	from = l.current
	if from != nil {
		from.State = Tangled
	}
	to = l.selectNextLocked()
	return from, to
}

// Wake moves a Tangled thread back to Weaving and enqueues it,
// per §4.5's transition table.
func (l *Loom) Wake(tid defs.Tid_t) defs.Err_t {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.threads[tid]
	if !ok || t.State != Tangled {
		return defs.EINVAL
	}
	t.State = Weaving
	heap.Push(&l.ready, t)
	return 0
}

// Exit marks tid Fading (§4.5). A Fading thread still in the ready
// queue is dropped from the thread table when it is next popped. A
// thread that is current, or not queued, when it exits is only
// cleared as current: it stays in the thread table, marked Fading,
// and nothing in the Loom removes it later.
func (l *Loom) Exit(tid defs.Tid_t) defs.Err_t {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.threads[tid]
	if !ok {
		return defs.EINVAL
	}
	t.State = Fading
	if l.current == t {
		l.current = nil
	}
	return 0
}

// SwitchDecision captures the bookkeeping §4.5's context-switch
// algorithm (steps 2-3) describes: whether the TSS rsp0 field and CR3
// need to change on this switch.
type SwitchDecision struct {
	UpdateRSP0 bool
	NewRSP0    uint64
	WriteCR3   bool
	NewCR3     uint64
}

// PlanSwitch computes what ContextSwitch must do between from and to,
// without performing it: a vessel change requires a new TSS.rsp0, and
// a differing CR3 requires a TLB-flushing write.
func PlanSwitch(from, to *Thread) SwitchDecision {
	var d SwitchDecision
	fromVessel, toVessel := vesselOf(from), vesselOf(to)
	if fromVessel != toVessel {
		d.UpdateRSP0 = true
		d.NewRSP0 = to.KernelStackTop
	}
	if from == nil || from.Context.CR3 != to.Context.CR3 {
		d.WriteCR3 = true
		d.NewCR3 = to.Context.CR3
	}
	return d
}

func vesselOf(t *Thread) defs.VesselId {
	if t == nil || t.VesselID == nil {
		return 0
	}
	return *t.VesselID
}
