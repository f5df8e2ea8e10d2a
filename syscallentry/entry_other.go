//go:build !amd64

package syscallentry

// EntryPoint has no real trampoline to address on non-amd64 builds;
// callers that reach this path are already off the only hardware this
// package targets.
func EntryPoint() uint64 {
	return 0
}
