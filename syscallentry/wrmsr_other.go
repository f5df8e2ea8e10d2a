//go:build !amd64

package syscallentry

// UseRealWRMSR has no hardware backing off amd64; it is a no-op so
// host tools built for other architectures still link.
func UseRealWRMSR() {}
