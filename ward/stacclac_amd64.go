//go:build amd64

package ward

// stacAsm and clacAsm execute STAC/CLAC (implemented in
// stacclac_amd64.s). Both #UD on a CPU without SMAP, so
// UseRealStacClac must only be called after EnableHardening has
// confirmed SMAP support — unlike cpuid (always safe), this hook stays
// a no-op by default and is wired in explicitly by bootglue.
func stacAsm()
func clacAsm()

// UseRealStacClac points the stac/clac hooks at the real instructions.
func UseRealStacClac() {
	stac = stacAsm
	clac = clacAsm
}
