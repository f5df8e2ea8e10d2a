package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFatalWritesStructuredMessageThenHalts(t *testing.T) {
	var out bytes.Buffer
	require.PanicsWithValue(t, "diag: fatal halt", func() {
		Fatal(&out, Report{
			Reason:     "sealed-write fault",
			ThreadID:   7,
			RIP:        0xFFFF800000100000,
			FaultAddr:  0xFFFF800000101000,
			HasCanary:  true,
			CanaryWant: 0xAB,
			CanaryGot:  0xFF,
		})
	})
	s := out.String()
	require.Contains(t, s, "sealed-write fault")
	require.Contains(t, s, "tid=7")
	require.Contains(t, s, "canary: want=0xab got=0xff")
}

func TestFatalSkipsDisassemblyOnEmptyCode(t *testing.T) {
	var out bytes.Buffer
	require.Panics(t, func() {
		Fatal(&out, Report{Reason: "kernel-mode page fault"})
	})
	require.NotContains(t, out.String(), "faulting instruction")
}

func TestFatalDisassemblesCodeWhenPresent(t *testing.T) {
	var out bytes.Buffer
	// 0x90 is NOP; a trivially decodable single-byte instruction.
	require.Panics(t, func() {
		Fatal(&out, Report{Reason: "test", Code: []byte{0x90}})
	})
	require.Contains(t, out.String(), "faulting instruction")
}

func TestDedupReportsFirstOccurrenceOnly(t *testing.T) {
	d := NewDedup()
	require.True(t, d.First("fault-at-0x1000"))
	require.False(t, d.First("fault-at-0x1000"))
	require.True(t, d.First("fault-at-0x2000"))
	require.Equal(t, 2, d.Count())
}
