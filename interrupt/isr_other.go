//go:build !amd64

package interrupt

// PageFaultEntryPoint, TimerEntryPoint and KeyboardEntryPoint have no
// real ISR stub to point at outside amd64; bootglue only ever runs on
// amd64, so these exist solely to keep the package buildable for
// hosted tooling on other architectures.
func PageFaultEntryPoint() uintptr { return 0 }
func TimerEntryPoint() uintptr     { return 0 }
func KeyboardEntryPoint() uintptr  { return 0 }
