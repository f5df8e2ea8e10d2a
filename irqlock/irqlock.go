// Package irqlock provides two lock types for the kernel's shared
// tables. Lock is a mutex that does not nest; Loom and Harbor use it.
// IRQLock (LockIRQ/UnlockIRQ) lets the current holder re-enter from
// its own interrupt handler without deadlocking; the Mana Pool uses
// it. The frame allocator in package mem guards its bitmap with a
// sync.Mutex instead. Neither type saves, clears or restores a real
// interrupt flag: a hosted Go process has none.
//
// AethelOS is single-CPU (§5), so there is exactly one lock holder at
// any instant; the reentrancy this package models is "the current
// holder re-enters from its own interrupt handler", not concurrent
// ownership by distinct CPUs — the lock exists so an interrupt
// handler sharing a data structure with the thread it interrupted
// doesn't tear it, not to arbitrate between cores.
package irqlock

import "sync"

// Lock is a depth-counted mutex. Lock blocks until the lock is free,
// including when the caller already holds it, so it does not nest;
// IRQLock is the variant that lets a holder's own interrupt handler
// re-enter. Unlock must be called once per matching Lock.
type Lock struct {
	mu    sync.Mutex
	depth int
}

// Lock acquires the lock and increments the depth counter. Hosted Go
// has no interrupt flag to clear; the depth counter stands in for
// "interrupts already disabled by this holder".
func (l *Lock) Lock() {
	l.mu.Lock()
	l.depth++
}

// Unlock decrements the depth counter and releases the underlying
// mutex.
//
// This is a simplification: a real nested acquire must not block the
// mutex a second time, which requires holder identity this package
// does not track. Callers that need true reentrant nesting (interrupt
// handler acquiring a lock its interrupted thread already holds) use
// LockIRQ/UnlockIRQ instead.
func (l *Lock) Unlock() {
	l.depth--
	l.mu.Unlock()
}

// Flags is an opaque token returned by LockIRQ and consumed by
// UnlockIRQ, standing in for the saved RFLAGS.IF bit a real
// interrupt-safe spinlock would restore.
type Flags struct{ wasHeld bool }

// reentrant is a single-CPU nesting lock: because AethelOS runs on one
// core, "held" is global state rather than per-holder, matching the
// uniprocessor model spec.md §5 describes.
type reentrant struct {
	mu   sync.Mutex
	held bool
}

// IRQLock is the reentrant variant used by Mana Pool (§4.3): an
// allocation requested from inside an interrupt handler that
// preempted a thread already holding the lock must succeed rather
// than deadlock.
type IRQLock struct {
	r reentrant
}

// LockIRQ acquires the lock. If it is already held — necessarily by
// the context that is about to re-enter, since AethelOS has only one
// core — it returns immediately with Flags.wasHeld set, and the
// matching UnlockIRQ becomes a no-op.
func (l *IRQLock) LockIRQ() Flags {
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	if l.r.held {
		return Flags{wasHeld: true}
	}
	l.r.held = true
	return Flags{wasHeld: false}
}

// UnlockIRQ releases the lock unless f indicates this call was a
// reentrant nested acquisition, in which case the outer holder is
// still responsible for the real unlock.
func (l *IRQLock) UnlockIRQ(f Flags) {
	if f.wasHeld {
		return
	}
	l.r.mu.Lock()
	l.r.held = false
	l.r.mu.Unlock()
}
