package interrupt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGatePacksOffsetAndAttributes(t *testing.T) {
	var tbl Table
	tbl.SetGate(VectorPageFault, 0x1122_3344_5566_7788, 0x08, 1)

	e := tbl[VectorPageFault]
	require.Equal(t, uint16(0x7788), e.OffsetLow)
	require.Equal(t, uint16(0x5566), e.OffsetMid)
	require.Equal(t, uint32(0x1122_3344), e.OffsetHigh)
	require.Equal(t, uint16(0x08), e.Selector)
	require.Equal(t, uint8(1), e.IST)
	require.Equal(t, uint8(gateInterrupt), e.TypeAttr)
}

func TestDescriptorForCoversWholeTable(t *testing.T) {
	var tbl Table
	d := DescriptorFor(&tbl)
	require.Equal(t, uint16(len(tbl)*16-1), d.Limit)
	require.NotZero(t, d.Base)
}
