// Package console implements spec.md §6's two write-only diagnostic
// sinks: VGA text mode at 0xB8000 (80x25, CP437) and COM1 serial at
// 115200 8N1. Both are grounded on gopheros/device/video/console's
// VgaTextConsole (framebuffer-as-uint16-slice, 1-based Fill/Scroll/
// Write shape) adapted to a plain io.Writer, since AethelOS has no
// windowing or palette concept to expose — only a console byte sink.
package console

import (
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultWidth and DefaultHeight match spec.md §6's 80x25 mode.
	DefaultWidth  = 80
	DefaultHeight = 25

	clearCell = uint16(' ') | uint16(0x07)<<8 // light gray on black
)

// VGA is an 80x25 CP437 text-mode console backed by a caller-supplied
// framebuffer slice (two bytes per cell: character, then attribute).
// A real boot maps fb over physical 0xB8000 (see MapFramebuffer);
// tests supply a plain make([]uint16, width*height).
type VGA struct {
	width, height uint32
	fb            []uint16
	row, col      uint32
	attr          uint8

	encoder interface {
		Bytes([]byte) ([]byte, error)
	}
}

// NewVGA builds a VGA console over fb, which must have at least
// width*height elements.
func NewVGA(width, height uint32, fb []uint16) *VGA {
	return &VGA{
		width:   width,
		height:  height,
		fb:      fb,
		attr:    0x07,
		encoder: charmap.CodePage437.NewEncoder(),
	}
}

// Write implements io.Writer: p is encoded to CP437 and drawn starting
// at the current cursor position, advancing and scrolling as needed.
// '\n' moves to the start of the next row. Invalid CP437 runs are
// encoded best-effort (x/text's encoder substitutes '?' by default),
// since a diagnostic console must never block or error on odd bytes.
func (v *VGA) Write(p []byte) (int, error) {
	encoded, _ := v.encoder.Bytes(p)
	for _, b := range encoded {
		if b == '\n' {
			v.newline()
			continue
		}
		v.putChar(b)
	}
	return len(p), nil
}

func (v *VGA) putChar(ch byte) {
	idx := v.row*v.width + v.col
	if idx < uint32(len(v.fb)) {
		v.fb[idx] = uint16(ch) | uint16(v.attr)<<8
	}
	v.col++
	if v.col >= v.width {
		v.newline()
	}
}

func (v *VGA) newline() {
	v.col = 0
	v.row++
	if v.row >= v.height {
		v.scroll()
		v.row = v.height - 1
	}
}

// scroll shifts every row up by one, clearing the last row, mirroring
// VgaTextConsole.Scroll's ScrollDirUp arithmetic for a single line.
func (v *VGA) scroll() {
	copy(v.fb, v.fb[v.width:v.height*v.width])
	for i := (v.height - 1) * v.width; i < v.height*v.width; i++ {
		v.fb[i] = clearCell
	}
}
