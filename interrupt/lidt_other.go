//go:build !amd64

package interrupt

// UseRealLIDT has nothing to wire on a non-amd64 build.
func UseRealLIDT() {}

// Load is a no-op stand-in on non-amd64 builds.
func Load(d Descriptor) {}
