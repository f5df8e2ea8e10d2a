//go:build !amd64

package diag

// UseRealHalt has nothing to wire on a non-amd64 build.
func UseRealHalt() {}
