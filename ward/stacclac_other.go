//go:build !amd64

package ward

// UseRealStacClac has no hardware backing off amd64.
func UseRealStacClac() {}
