package syscallentry

// SaveFrame is the register save area the entry trampoline builds on
// the kernel stack before calling into Dispatch, in the order §4.7
// step 3 describes: user SS, user RSP, user RFLAGS (from R11), user
// CS, return RIP (from RCX), then the callee-saved and argument
// registers. It generalizes the retrieved main.go's trap-frame layout
// (TF_RAX/TF_RDI/TF_RSI/...) from a generic interrupt frame to the
// syscall entry ABI specifically.
type SaveFrame struct {
	UserSS     uint64
	UserRSP    uint64
	UserRFLAGS uint64
	UserCS     uint64
	ReturnRIP  uint64

	RAX uint64 // syscall number on entry; return value on exit
	RDI uint64 // a1
	RSI uint64 // a2
	RDX uint64 // a3
	R10 uint64 // a4 (not RCX: SYSCALL clobbers RCX with the return RIP)
	R8  uint64 // a5
	R9  uint64 // a6

	RBX, RBP           uint64
	R12, R13, R14, R15 uint64
}

// Args returns the six argument registers in dispatcher order.
func (f *SaveFrame) Args() (a1, a2, a3, a4, a5, a6 uint64) {
	return f.RDI, f.RSI, f.RDX, f.R10, f.R8, f.R9
}

// IRETQFrame is the hand-built frame a newly created Vessel thread's
// first entry uses (§4.7 "Ring-3 first entry"): SS, RSP, RFLAGS, CS,
// and the entry RIP, consumed by IRETQ.
type IRETQFrame struct {
	UserSS     uint64
	UserRSP    uint64
	RFLAGS     uint64
	UserCS     uint64
	EntryPoint uint64
}

// defaultRFLAGS is 0x202: IF set, the reserved bit 1 set, per §4.7.
const defaultRFLAGS = 0x202

// BuildIRETQFrame constructs the first-entry frame for a Vessel thread
// starting at entryPoint with the given user stack and segment
// selectors.
func BuildIRETQFrame(sel Selectors, entryPoint, userRSP uint64) IRETQFrame {
	return IRETQFrame{
		UserSS:     uint64(sel.UserSS),
		UserRSP:    userRSP,
		RFLAGS:     defaultRFLAGS,
		UserCS:     uint64(sel.UserCS),
		EntryPoint: entryPoint,
	}
}
