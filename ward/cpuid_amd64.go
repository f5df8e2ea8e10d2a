//go:build amd64

package ward

func cpuidAsm(eaxArg, ecxArg uint32) (eax, ebx, ecx, edx uint32)

func cpuid(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32) {
	return cpuidAsm(leaf, subleaf)
}
