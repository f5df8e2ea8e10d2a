// Package mem implements the physical frame allocator: it tracks
// 4 KiB frames carved from the Multiboot2 memory map and hands them
// out to the page-table manager, the Mana Pool, and Vessel address
// spaces.
//
// Frames are not refcounted: the allocator keeps a single bitmap of
// free and owned frames rather than a singly-linked free list, because AllocFramesAligned(order)
// needs a contiguous-run search that a bitmap answers directly and a
// linked free list cannot.
package mem

import (
	"sync"

	"aethelos/defs"
)

const (
	// PageShift is the base-2 exponent of the page size.
	PageShift = 12
	// PageSize is the size of one physical frame in bytes.
	PageSize = 1 << PageShift
)

// Frame is a 4 KiB-aligned physical address.
type Frame uint64

// Number returns the frame's page number (address >> PageShift).
func (f Frame) Number() uint64 { return uint64(f) >> PageShift }

// Region describes one contiguous, available span of physical memory
// as handed to us by the Multiboot2 memory-map tag (§6).
type Region struct {
	Start  Frame
	Length uint64 // bytes
}

// Allocator is the system-wide physical frame allocator (§4.1). The
// zero value is unusable; build one with New.
type Allocator struct {
	mu sync.Mutex

	startFrame uint64 // frame number of bit 0
	frameCount uint64
	bitmap     []uint64 // 1 = allocated or reserved, 0 = free
	freeCount  uint64
}

// New builds an Allocator covering every frame mentioned by regions,
// then marks the frames in reserved as already owned (kernel image,
// Multiboot info, initial page tables, the framebuffer — §4.1).
func New(regions []Region, reserved []Region) *Allocator {
	var lo, hi uint64 = ^uint64(0), 0
	for _, r := range regions {
		start := r.Start.Number()
		end := start + r.Length/PageSize
		if start < lo {
			lo = start
		}
		if end > hi {
			hi = end
		}
	}
	if hi <= lo {
		lo, hi = 0, 0
	}
	a := &Allocator{
		startFrame: lo,
		frameCount: hi - lo,
		bitmap:     make([]uint64, (hi-lo+63)/64),
	}
	// Start with everything reserved, then free exactly the frames the
	// memory map calls available.
	for i := range a.bitmap {
		a.bitmap[i] = ^uint64(0)
	}
	for _, r := range regions {
		a.markRange(r, false)
	}
	for _, r := range reserved {
		a.markRange(r, true)
	}
	return a
}

func (a *Allocator) markRange(r Region, set bool) {
	start := r.Start.Number()
	n := r.Length / PageSize
	for i := uint64(0); i < n; i++ {
		a.markOne(start+i, set)
	}
}

func (a *Allocator) markOne(frameNo uint64, set bool) {
	if frameNo < a.startFrame || frameNo >= a.startFrame+a.frameCount {
		return
	}
	idx := frameNo - a.startFrame
	word, bit := idx/64, idx%64
	before := a.bitmap[word]&(1<<bit) != 0
	if set {
		a.bitmap[word] |= 1 << bit
	} else {
		a.bitmap[word] &^= 1 << bit
	}
	after := set
	if before && !after {
		a.freeCount++
	} else if !before && after {
		if a.freeCount > 0 {
			a.freeCount--
		}
	}
}

func (a *Allocator) isFree(idx uint64) bool {
	return a.bitmap[idx/64]&(1<<(idx%64)) == 0
}

// AllocFrame returns one free frame, marking it allocated. It
// satisfies Err_t's "never returns a reserved or already-allocated
// frame" invariant (§4.1, testable property 9) by construction: a
// frame only leaves the free set here.
func (a *Allocator) AllocFrame() (Frame, defs.Err_t) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.findRun(1, 1)
	if !ok {
		return 0, defs.ENOMEM
	}
	a.setRun(idx, 1)
	return Frame((a.startFrame + idx) << PageShift), 0
}

// AllocFramesAligned returns the physical address of 2^order
// contiguous frames, aligned to that same size (used for 2 MiB huge
// pages, order=9, and for Mana Pool region carve-out at boot).
func (a *Allocator) AllocFramesAligned(order uint) (Frame, defs.Err_t) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := uint64(1) << order
	idx, ok := a.findRun(n, n)
	if !ok {
		return 0, defs.ENOMEM
	}
	a.setRun(idx, n)
	return Frame((a.startFrame + idx) << PageShift), 0
}

// findRun looks for n contiguous free bits aligned to align (in
// units of frames). It is a linear scan: simple, and correct for the
// modest frame counts a single-node kernel without SMP or dynamic
// heap growth ever has to manage (§1 Non-goals).
func (a *Allocator) findRun(n, align uint64) (uint64, bool) {
	for start := uint64(0); start+n <= a.frameCount; start += align {
		free := true
		for i := uint64(0); i < n; i++ {
			if !a.isFree(start + i) {
				free = false
				break
			}
		}
		if free {
			return start, true
		}
	}
	return 0, false
}

func (a *Allocator) setRun(idx, n uint64) {
	for i := uint64(0); i < n; i++ {
		a.markOne(a.startFrame+idx+i, true)
	}
}

// FreeFrame returns p to the free set. Freeing an unowned (already
// free or out-of-range) frame is InvalidArgument, not a crash — §4.1
// requires this to "fail", and it is one of the 35 lookup-failure
// sites §9 asks to be made non-fatal.
func (a *Allocator) FreeFrame(p Frame) defs.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := p.Number()
	if n < a.startFrame || n >= a.startFrame+a.frameCount {
		return defs.EINVAL
	}
	idx := n - a.startFrame
	if a.isFree(idx) {
		return defs.EINVAL
	}
	a.markOne(n, false)
	return 0
}

// Stats reports free/total frame counts.
type Stats struct {
	TotalFrames uint64
	FreeFrames  uint64
}

// Stats returns a snapshot of allocator occupancy.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{TotalFrames: a.frameCount, FreeFrames: a.freeCount}
}
