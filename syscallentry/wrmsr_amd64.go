//go:build amd64

package syscallentry

// wrmsrAsm executes the WRMSR instruction (implemented in
// wrmsr_amd64.s). WRMSR is ring-0 only, so unlike cpuid (unprivileged,
// wired unconditionally by ward/cpuid_amd64.go) this is never wired
// into the wrmsr hook automatically: bootglue sets wrmsr = wrmsrAsm
// explicitly once it is actually running as the kernel, leaving the
// no-op default safe for hosted tests and tools.
func wrmsrAsm(addr uint32, value uint64)

// UseRealWRMSR points Install's hook at the real instruction. Call
// once, at boot, before the first Install.
func UseRealWRMSR() { wrmsr = wrmsrAsm }
