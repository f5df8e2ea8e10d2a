package profile

import (
	"bytes"
	"testing"

	"aethelos/loom"
	"aethelos/vessel"
	"github.com/stretchr/testify/require"
)

func TestSnapshotIncludesOneSamplePerThread(t *testing.T) {
	l := loom.New()
	l.CreateThread(10, nil, 0, 0x1000)
	l.CreateThread(5, nil, 0, 0x1000)
	h := vessel.NewHarbor()

	p := Snapshot(l, h)
	require.Len(t, p.Sample, 2)
	require.Len(t, p.SampleType, 4)
}

func TestSnapshotLabelsKernelThreadsDistinctly(t *testing.T) {
	l := loom.New()
	l.CreateThread(10, nil, 0, 0x1000)
	h := vessel.NewHarbor()

	p := Snapshot(l, h)
	require.Equal(t, "kernel-thread", p.Function[0].Name)
}

func TestWriteProducesNonEmptyOutput(t *testing.T) {
	l := loom.New()
	l.CreateThread(10, nil, 0, 0x1000)
	h := vessel.NewHarbor()

	var buf bytes.Buffer
	require.NoError(t, Write(l, h, &buf))
	require.NotZero(t, buf.Len())
}
