package syscallentry

import (
	"testing"

	"aethelos/defs"
	"github.com/stretchr/testify/require"
)

func TestDispatchUnknownNumberReturnsENOSYS(t *testing.T) {
	d := NewDispatcher()
	got := d.Dispatch(9999, 0, 0, 0, 0, 0, 0)
	require.Equal(t, defs.ENOSYS.Negate(), got)
}

func TestDispatchFrameRoundTrip(t *testing.T) {
	d := NewDispatcher()
	d.Register(7, func(a1, a2, a3, a4, a5, a6 uint64) int64 {
		return int64(a1 + a2)
	})
	f := &SaveFrame{RAX: 7, RDI: 3, RSI: 4}
	d.DispatchFrame(f)
	require.EqualValues(t, 7, f.RAX)
}
