//go:build amd64

package pagetable

// invlpgAsm executes INVLPG (implemented in invlpg_amd64.s). INVLPG
// is ring-0 only, so like syscallentry's wrmsr and ward's stac/clac
// this is never wired in automatically: bootglue calls UseRealINVLPG
// once it is actually running as the kernel.
func invlpgAsm(virt uint64)

// UseRealINVLPG points flushTLB at the real instruction.
func UseRealINVLPG() { flushTLB = invlpgAsm }
