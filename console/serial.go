package console

// COM1 is the serial port spec.md §6 names for diagnostics, 115200
// 8N1, matching the retrieved main.go's _comready/0x3f8 constants.
const COM1 = 0x3f8

const lineStatusReady = 1 << 5 // THRE: transmit holding register empty

// Serial is a write-only UART console over port, polling the line
// status register before each byte exactly as the retrieved main.go's
// _comready does for its read-side counterpart.
type Serial struct {
	port uint16
}

// NewSerial builds a Serial console over port (COM1 in normal boot).
func NewSerial(port uint16) *Serial {
	return &Serial{port: port}
}

// Write implements io.Writer, sending each byte of p out the UART.
func (s *Serial) Write(p []byte) (int, error) {
	for _, b := range p {
		for inb(s.port+5)&lineStatusReady == 0 {
		}
		outb(s.port, b)
	}
	return len(p), nil
}

// InB and OutB expose the port I/O hooks below to other packages that
// need raw port access for reasons unrelated to the serial console
// (the interrupt package's 8259 PIC remap/mask/EOI), so every
// privileged IN/OUT in the kernel shares one real-hardware wiring
// point (UseRealPortIO).
func InB(port uint16) byte    { return inb(port) }
func OutB(port uint16, b byte) { outb(port, b) }

// inb and outb are port I/O hooks, overridable for hosted tests. They
// default to a no-op outb and an always-ready inb so Serial.Write
// never spins in a test process; real wiring is UseRealPortIO,
// following the same explicit-opt-in shape as wrmsr/stac-clac/invlpg.
var (
	inb  = func(port uint16) byte { return lineStatusReady }
	outb = func(port uint16, b byte) {}
)
