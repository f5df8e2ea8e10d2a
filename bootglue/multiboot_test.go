package bootglue

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func putTagHeader(buf []byte, pos int, t tagType, size uint32) {
	binary.LittleEndian.PutUint32(buf[pos:pos+4], uint32(t))
	binary.LittleEndian.PutUint32(buf[pos+4:pos+8], size)
}

func buildMultibootInfo(t *testing.T) []byte {
	t.Helper()
	var buf []byte
	buf = append(buf, make([]byte, 8)...) // info header (totalSize, reserved)

	// memory map tag: header(8) + mmapHeader(8) + 2 entries(24 each)
	mmapStart := len(buf)
	mmapSize := uint32(8 + 8 + 24*2)
	buf = append(buf, make([]byte, mmapSize)...)
	putTagHeader(buf, mmapStart, tagMemoryMap, mmapSize)
	binary.LittleEndian.PutUint32(buf[mmapStart+8:mmapStart+12], 24) // entrySize
	e0 := mmapStart + 16
	binary.LittleEndian.PutUint64(buf[e0:e0+8], 0x100000)
	binary.LittleEndian.PutUint64(buf[e0+8:e0+16], 0x200000)
	binary.LittleEndian.PutUint32(buf[e0+16:e0+20], uint32(MemAvailable))
	e1 := e0 + 24
	binary.LittleEndian.PutUint64(buf[e1:e1+8], 0x400000)
	binary.LittleEndian.PutUint64(buf[e1+8:e1+16], 0x1000)
	binary.LittleEndian.PutUint32(buf[e1+16:e1+20], uint32(MemReserved))

	// 8-byte align
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}

	// framebuffer tag
	fbStart := len(buf)
	fbSize := uint32(8 + 22)
	buf = append(buf, make([]byte, fbSize)...)
	putTagHeader(buf, fbStart, tagFramebufferInfo, fbSize)
	fc := fbStart + 8
	binary.LittleEndian.PutUint64(buf[fc:fc+8], 0xFD000000)
	binary.LittleEndian.PutUint32(buf[fc+8:fc+12], 3200)
	binary.LittleEndian.PutUint32(buf[fc+12:fc+16], 800)
	binary.LittleEndian.PutUint32(buf[fc+16:fc+20], 600)
	buf[fc+20] = 32
	buf[fc+21] = byte(FramebufferTypeRGB)

	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	endStart := len(buf)
	buf = append(buf, make([]byte, 8)...)
	putTagHeader(buf, endStart, tagMbSectionEnd, 8)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
	return buf
}

func TestMemoryMapParsesEntries(t *testing.T) {
	in := NewInfo(buildMultibootInfo(t))
	entries := in.MemoryMap()
	require.Len(t, entries, 2)
	require.Equal(t, MemoryMapEntry{PhysAddress: 0x100000, Length: 0x200000, Type: MemAvailable}, entries[0])
	require.Equal(t, MemoryMapEntry{PhysAddress: 0x400000, Length: 0x1000, Type: MemReserved}, entries[1])
}

func TestFramebufferParsesFields(t *testing.T) {
	in := NewInfo(buildMultibootInfo(t))
	fb, ok := in.Framebuffer()
	require.True(t, ok)
	require.Equal(t, uint64(0xFD000000), fb.PhysAddr)
	require.EqualValues(t, 3200, fb.Pitch)
	require.EqualValues(t, 800, fb.Width)
	require.EqualValues(t, 600, fb.Height)
	require.EqualValues(t, 32, fb.Bpp)
	require.Equal(t, FramebufferTypeRGB, fb.Type)
}

func TestFramebufferAbsentReturnsFalse(t *testing.T) {
	raw := make([]byte, 16)
	binary.LittleEndian.PutUint32(raw[0:4], 16)
	putTagHeader(raw, 8, tagMbSectionEnd, 8)
	in := NewInfo(raw)
	_, ok := in.Framebuffer()
	require.False(t, ok)
}

func TestMemoryMapMissingTagReturnsNil(t *testing.T) {
	raw := make([]byte, 16)
	binary.LittleEndian.PutUint32(raw[0:4], 16)
	putTagHeader(raw, 8, tagMbSectionEnd, 8)
	in := NewInfo(raw)
	require.Nil(t, in.MemoryMap())
}
