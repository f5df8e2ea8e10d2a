package console

import "sync"

// set1ScancodeTable maps PS/2 Set 1 make-codes to ASCII, lifted from
// the retrieved main.go's kbd_init table (itself credited there to
// xv6). Unmapped codes (function keys, break codes, modifiers) are
// simply absent and dropped by Feed.
var set1ScancodeTable = buildSet1Table()

func buildSet1Table() map[byte]byte {
	const none = 0
	row := []byte{
		none, 0x1B, '1', '2', '3', '4', '5', '6', // 0x00
		'7', '8', '9', '0', '-', '=', '\b', '\t',
		'q', 'w', 'e', 'r', 't', 'y', 'u', 'i', // 0x10
		'o', 'p', '[', ']', '\n', none, 'a', 's',
		'd', 'f', 'g', 'h', 'j', 'k', 'l', ';', // 0x20
		'\'', '`', none, '\\', 'z', 'x', 'c', 'v',
		'b', 'n', 'm', ',', '.', '/', none, '*', // 0x30
		none, ' ',
	}
	table := make(map[byte]byte, len(row))
	for i, c := range row {
		if c != none {
			table[byte(i)] = c
		}
	}
	return table
}

// Keyboard decodes PS/2 Set-1 scancodes into an io.Reader-compatible
// byte stream. The interrupt package's keyboard IRQ handler calls Feed
// synchronously with each scancode read from port 0x60; there is no
// per-IRQ goroutine (the scheduler is single-CPU cooperative, and
// nothing here assumes a runtime that preempts on IRQ), so a
// mutex-guarded buffer is sufficient — no daemon goroutine or channel
// needed.
type Keyboard struct {
	mu  sync.Mutex
	buf []byte
}

// NewKeyboard builds an empty Keyboard.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// Feed decodes scancode and appends the resulting byte, if any, to the
// pending read buffer. Break codes (high bit set) and unmapped codes
// are silently dropped, matching kbd_init's km[sc] lookup-miss
// behavior.
func (k *Keyboard) Feed(scancode byte) {
	c, ok := set1ScancodeTable[scancode]
	if !ok {
		return
	}
	k.mu.Lock()
	k.buf = append(k.buf, c)
	k.mu.Unlock()
}

// Read implements io.Reader, draining whatever Feed has buffered so
// far. It never blocks: an empty buffer returns (0, nil), matching
// §4.7's read() syscall treating a would-block as a zero-length
// success rather than an error.
func (k *Keyboard) Read(p []byte) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := copy(p, k.buf)
	k.buf = k.buf[n:]
	return n, nil
}
