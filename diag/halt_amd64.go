//go:build amd64

package diag

// haltLoopAsm is implemented in halt_amd64.s.
func haltLoopAsm()

// UseRealHalt points halt at the real CLI+HLT loop. Never called
// automatically; bootglue calls it once, right before Fatal's first
// possible invocation point, so a hosted test process never executes
// an instruction that would hang it.
func UseRealHalt() {
	halt = haltLoopAsm
}
