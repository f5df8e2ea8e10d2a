//go:build amd64

package interrupt

// readCR2Asm is implemented in cr2_amd64.s.
func readCR2Asm() uint64

// UseRealCR2 points readCR2 at the real MOV-from-CR2 instruction.
func UseRealCR2() {
	readCR2 = readCR2Asm
}
