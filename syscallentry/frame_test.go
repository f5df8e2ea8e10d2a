package syscallentry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveFrameArgsOrder(t *testing.T) {
	f := SaveFrame{RDI: 1, RSI: 2, RDX: 3, R10: 4, R8: 5, R9: 6}
	a1, a2, a3, a4, a5, a6 := f.Args()
	require.EqualValues(t, [6]uint64{1, 2, 3, 4, 5, 6}, [6]uint64{a1, a2, a3, a4, a5, a6})
}

func TestBuildIRETQFrame(t *testing.T) {
	sel := validSelectors()
	f := BuildIRETQFrame(sel, 0x400000, 0x7FFF_FFFF_F000)
	require.EqualValues(t, sel.UserSS, f.UserSS)
	require.EqualValues(t, 0x7FFF_FFFF_F000, f.UserRSP)
	require.EqualValues(t, defaultRFLAGS, f.RFLAGS)
	require.EqualValues(t, sel.UserCS, f.UserCS)
	require.EqualValues(t, 0x400000, f.EntryPoint)
}
