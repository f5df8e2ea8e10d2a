//go:build !amd64

package interrupt

// UseRealCR2 has nothing to wire on a non-amd64 build.
func UseRealCR2() {}
