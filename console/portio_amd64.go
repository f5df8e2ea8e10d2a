//go:build amd64

package console

// inbAsm and outbAsm are implemented in portio_amd64.s.
func inbAsm(port uint16) byte
func outbAsm(port uint16, b byte)

// UseRealPortIO points Serial's inb/outb at the real IN/OUT
// instructions. IN/OUT fault outside ring 0 (or without IOPL/TSS
// bitmap access), so this follows the same never-auto-wired,
// explicit-opt-in shape as UseRealWRMSR/UseRealStacClac/
// UseRealINVLPG: only bootglue calls it, after confirming it is
// running at boot, not in a hosted test process.
func UseRealPortIO() {
	inb = inbAsm
	outb = outbAsm
}
