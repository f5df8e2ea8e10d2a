package syscallentry

import (
	"io"

	"aethelos/defs"
	"aethelos/loom"
	"aethelos/mem"
	"aethelos/pagetable"
	"aethelos/vessel"
	"aethelos/ward"
)

// defaultThreadPriority matches vessel's own priorityNormal; a created
// thread starts at the same default priority a Vessel's main thread
// does, since §4.7 specifies no priority argument to create_thread.
const defaultThreadPriority = 10

// Syscalls bundles the normative minimal syscall set's (§4.7)
// dependencies: the scheduler (for the calling thread's identity and
// yield/exit), the process table (to resolve the calling Vessel), the
// frame allocator (for a new thread's kernel stack), and the console
// writer write(fd=1,2) copies into.
type Syscalls struct {
	Loom   *loom.Loom
	Harbor *vessel.Harbor
	Frames *mem.Allocator
	Pages  *pagetable.Manager
	Stdout io.Writer
	Stdin  io.Reader
	Clock  func() uint64
}

// NewDefaultDispatcher registers every syscall in the normative
// minimal set against s, leaving every other number to fall through
// to ENOSYS per the dispatcher contract.
func NewDefaultDispatcher(s *Syscalls) *Dispatcher {
	d := NewDispatcher()
	d.Register(SysExit, s.exit)
	d.Register(SysWrite, s.write)
	d.Register(SysRead, s.read)
	d.Register(SysYield, s.yield)
	d.Register(SysGetTime, s.getTime)
	d.Register(SysCreateThread, s.createThread)
	d.Register(SysTestSMAP, s.testSMAP)
	return d
}

// currentVessel resolves the Vessel owning the currently-scheduled
// thread. A kernel thread (VesselID == nil) has no Vessel and cannot
// issue user-memory-touching syscalls.
func (s *Syscalls) currentVessel() (*vessel.Vessel, defs.Err_t) {
	t := s.Loom.Current()
	if t == nil || t.VesselID == nil {
		return nil, defs.EINVAL
	}
	v, ok := s.Harbor.Lookup(*t.VesselID)
	if !ok {
		return nil, defs.EINVAL
	}
	return v, 0
}

// exit implements exit(code): the calling thread fades.
func (s *Syscalls) exit(code, _, _, _, _, _ uint64) int64 {
	t := s.Loom.Current()
	if t == nil {
		return defs.EINVAL.Negate()
	}
	if err := s.Loom.Exit(t.ID); err != 0 {
		return err.Negate()
	}
	return 0
}

// write implements write(fd, buf, len): fd 1 and 2 copy to Stdout
// (§6 Console's eventual backing); any other fd is EINVAL since the
// normative set has no general file descriptor table.
func (s *Syscalls) write(fd, bufAddr, length, _, _, _ uint64) int64 {
	v, verr := s.currentVessel()
	if verr != 0 {
		return verr.Negate()
	}
	ptr, perr := ward.NewMortalPointerN(bufAddr, length)
	if perr != 0 {
		return perr.Negate()
	}
	data, rerr := ward.SanctifiedCopyBytesFromUser(v, ptr)
	if rerr != 0 {
		return rerr.Negate()
	}
	switch fd {
	case 1, 2:
		n, werr := s.Stdout.Write(data)
		if werr != nil {
			return defs.EFAULT.Negate()
		}
		return int64(n)
	default:
		return defs.EINVAL.Negate()
	}
}

// read implements read(fd, buf, len): fd 0 reads from Stdin and copies
// the result into the caller's buffer.
func (s *Syscalls) read(fd, bufAddr, length, _, _, _ uint64) int64 {
	v, verr := s.currentVessel()
	if verr != 0 {
		return verr.Negate()
	}
	if fd != 0 || s.Stdin == nil {
		return defs.EINVAL.Negate()
	}
	if _, perr := ward.NewMortalPointerN(bufAddr, length); perr != 0 {
		return perr.Negate()
	}
	buf := make([]byte, length)
	n, rerr := s.Stdin.Read(buf)
	if rerr != nil && n == 0 {
		return 0 // EOF reads as a zero-length success, not an error
	}
	ptr, perr := ward.NewMortalPointerN(bufAddr, uint64(n))
	if perr != 0 {
		return perr.Negate()
	}
	if werr := ward.SanctifiedCopyBytesToUser(v, ptr, buf[:n]); werr != 0 {
		return werr.Negate()
	}
	return int64(n)
}

// yield implements yield(): the calling thread voluntarily gives up
// the CPU.
func (s *Syscalls) yield(_, _, _, _, _, _ uint64) int64 {
	s.Loom.YieldNow()
	return 0
}

// getTime implements get_time(): returns Clock's current tick.
func (s *Syscalls) getTime(_, _, _, _, _, _ uint64) int64 {
	if s.Clock == nil {
		return 0
	}
	return int64(s.Clock())
}

// createThread implements create_thread(entry, stack): a new thread in
// the calling Vessel, with its own kernel stack, starting execution at
// entry with the given user stack pointer.
func (s *Syscalls) createThread(entry, stack, _, _, _, _ uint64) int64 {
	v, verr := s.currentVessel()
	if verr != 0 {
		return verr.Negate()
	}
	kBottom, kTop, kPages, kerr := vessel.AllocKernelStack(s.Frames, s.Pages, v.Space, v.Limits.KernelStackPages, v.Limits.GuardPages)
	if kerr != 0 {
		return kerr.Negate()
	}
	v.TrackPages(kPages)
	vid := v.ID
	th := s.Loom.CreateThread(defaultThreadPriority, &vid, kBottom, kTop)
	th.Context.RIP = entry
	th.Context.RSP = stack
	th.Context.CR3 = uint64(v.Space.PML4)
	return int64(th.ID)
}

// testSMAP implements test_smap(ptr), the diagnostic syscall §4.7
// names: it exercises the bracketed user-memory read path over a
// single byte at ptr, confirming the Ward stac/clac wiring is intact.
// It cannot reproduce a raw, unbracketed SMAP fault inside a hosted
// simulation — that is a CPU-level event with no Go-level contract —
// so it validates the bracket itself rather than the fault.
func (s *Syscalls) testSMAP(ptr, _, _, _, _, _ uint64) int64 {
	v, verr := s.currentVessel()
	if verr != 0 {
		return verr.Negate()
	}
	mp, perr := ward.NewMortalPointerN(ptr, 1)
	if perr != 0 {
		return perr.Negate()
	}
	if _, rerr := ward.SanctifiedCopyBytesFromUser(v, mp); rerr != 0 {
		return rerr.Negate()
	}
	return 0
}
