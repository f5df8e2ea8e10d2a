package ward

import (
	"testing"

	"aethelos/defs"
	"github.com/stretchr/testify/require"
)

type sliceMemory struct {
	mem []byte
}

func (s *sliceMemory) ReadAt(addr, n uint64) ([]byte, defs.Err_t) {
	if addr+n > uint64(len(s.mem)) {
		return nil, defs.EFAULT
	}
	out := make([]byte, n)
	copy(out, s.mem[addr:addr+n])
	return out, 0
}

func (s *sliceMemory) WriteAt(addr uint64, data []byte) defs.Err_t {
	if addr+uint64(len(data)) > uint64(len(s.mem)) {
		return defs.EFAULT
	}
	copy(s.mem[addr:], data)
	return 0
}

func TestMortalPointerBoundary(t *testing.T) {
	const addr = 0x0000_7FFF_FFFF_F000

	_, err := NewMortalPointer[[0x1000]byte](addr)
	require.Zero(t, err)

	_, err = NewMortalPointer[[0x1001]byte](addr)
	require.Equal(t, defs.EPTRRANGE, err)
}

func TestMortalPointerOverflowRejected(t *testing.T) {
	_, err := NewMortalPointer[uint64](^uint64(0) - 2)
	require.Equal(t, defs.EPTRRANGE, err)
}

func TestSanctifiedCopyRoundTrip(t *testing.T) {
	mem := &sliceMemory{mem: make([]byte, 4096)}

	ptr, err := NewMortalPointer[uint64](0x100)
	require.Zero(t, err)

	require.Zero(t, SanctifiedCopyToUser(mem, uint64(0xDEADBEEF), ptr))

	got, err := SanctifiedCopyFromUser(mem, ptr)
	require.Zero(t, err)
	require.EqualValues(t, 0xDEADBEEF, got)
}

func TestSanctifiedCopyBytesRoundTrip(t *testing.T) {
	mem := &sliceMemory{mem: make([]byte, 4096)}
	data := []byte("hello vessel")

	ptr, err := NewMortalPointerN(0x300, uint64(len(data)))
	require.Zero(t, err)

	require.Zero(t, SanctifiedCopyBytesToUser(mem, ptr, data))
	got, gerr := SanctifiedCopyBytesFromUser(mem, ptr)
	require.Zero(t, gerr)
	require.Equal(t, data, got)
}

func TestSanctifiedCopyBytesFaultsOutsideRange(t *testing.T) {
	mem := &sliceMemory{mem: make([]byte, 16)}
	ptr, err := NewMortalPointerN(8, 32)
	require.Zero(t, err)
	_, err = SanctifiedCopyBytesFromUser(mem, ptr)
	require.Equal(t, defs.EFAULT, err)
}

func TestMortalPointerNRejectsOutOfRangeSize(t *testing.T) {
	_, err := NewMortalPointerN(UserHalfLimit-0x1000, 0x1001)
	require.Equal(t, defs.EPTRRANGE, err)
}

func TestMortalPointerNRejectsOverflow(t *testing.T) {
	_, err := NewMortalPointerN(^uint64(0)-2, 16)
	require.Equal(t, defs.EPTRRANGE, err)
}

func TestStacClacBracketing(t *testing.T) {
	mem := &sliceMemory{mem: make([]byte, 4096)}
	ptr, err := NewMortalPointer[uint64](0x200)
	require.Zero(t, err)

	var trace []string
	oldStac, oldClac := stac, clac
	stac = func() { trace = append(trace, "stac") }
	clac = func() { trace = append(trace, "clac") }
	defer func() { stac, clac = oldStac, oldClac }()

	_, _ = SanctifiedCopyFromUser(mem, ptr)
	require.Equal(t, []string{"stac", "clac"}, trace, "stac/clac must bracket the access and never remain open")
}
