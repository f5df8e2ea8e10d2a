//go:build !amd64

package pagetable

// UseRealINVLPG has no hardware backing off amd64.
func UseRealINVLPG() {}
