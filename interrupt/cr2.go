package interrupt

// readCR2 is overridable for hosted tests; the page-fault handler
// calls it to learn the faulting address. Reading CR2 is not
// privileged the way WRMSR/LIDT/port I/O are (it only faults if read
// from a non-zero ring, same as any other control register), but it
// is still real hardware state with no meaning off real silicon, so it
// follows the same hook-plus-UseReal shape for consistency and
// testability.
var readCR2 = func() uint64 { return 0 }
