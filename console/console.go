package console

import "io"

// Console fans writes out to both VGA and Serial, matching §6's "both
// are write-only from the core's perspective" requirement for the two
// diagnostic sinks. It is the concrete writer klog.Configure and
// Syscalls.Stdout are built over.
type Console struct {
	io.Writer
}

// New builds a Console writing to both vga and serial.
func New(vga *VGA, serial *Serial) *Console {
	return &Console{Writer: io.MultiWriter(vga, serial)}
}
