//go:build !amd64

package console

// UseRealPortIO has nothing to wire on a non-amd64 build.
func UseRealPortIO() {}
