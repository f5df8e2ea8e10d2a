package loom

import (
	"testing"

	"aethelos/defs"
	"github.com/stretchr/testify/require"
)

func TestCooperativeYieldAlternatesEqualPriority(t *testing.T) {
	l := New()
	t1 := l.CreateThread(10, nil, 0, 0x1000)
	t2 := l.CreateThread(10, nil, 0, 0x2000)
	t3 := l.CreateThread(5, nil, 0, 0x3000)

	cur := l.SelectNext()
	require.Equal(t, t1.ID, cur.ID, "equal priority and last_run_time ties break on ascending id")

	var seen []defs.Tid_t
	for i := 0; i < 6; i++ {
		_, to := l.YieldNow()
		seen = append(seen, to.ID)
	}

	for i, id := range seen {
		if i%2 == 0 {
			require.Equal(t, t2.ID, id, "index %d", i)
		} else {
			require.Equal(t, t1.ID, id, "index %d", i)
		}
		require.NotEqual(t, t3.ID, id, "the low-priority thread must not run while both normal-priority threads are ready")
	}
}

func TestLowerPriorityRunsOnceOthersFade(t *testing.T) {
	l := New()
	t1 := l.CreateThread(10, nil, 0, 0x1000)
	_ = l.CreateThread(10, nil, 0, 0x2000)
	t3 := l.CreateThread(5, nil, 0, 0x3000)

	cur := l.SelectNext()
	require.Equal(t, t1.ID, cur.ID)

	require.Zero(t, l.Exit(t1.ID))

	// Drain the other normal-priority thread too so only t3 remains.
	_, to := l.YieldNow() // current (nil, since t1 exited mid-run) -> picks t2
	require.Zero(t, l.Exit(to.ID))

	_, to = l.YieldNow()
	require.Equal(t, t3.ID, to.ID, "t3 only becomes selectable once both normal-priority threads are gone")
}

func TestBlockAndWake(t *testing.T) {
	l := New()
	t1 := l.CreateThread(10, nil, 0, 0x1000)
	t2 := l.CreateThread(10, nil, 0, 0x2000)

	cur := l.SelectNext()
	require.Equal(t, t1.ID, cur.ID)

	from, to := l.Block()
	require.Equal(t, t1.ID, from.ID)
	require.Equal(t, Tangled, from.State)
	require.Equal(t, t2.ID, to.ID)

	require.Zero(t, l.Wake(t1.ID))
	require.Equal(t, Weaving, t1.State)
}

func TestWakeNonTangledFails(t *testing.T) {
	l := New()
	t1 := l.CreateThread(10, nil, 0, 0x1000)
	l.SelectNext()
	require.Equal(t, defs.EINVAL, l.Wake(t1.ID))
}

func TestPlanSwitchDetectsVesselAndCR3Change(t *testing.T) {
	v1 := defs.VesselId(1)
	v2 := defs.VesselId(2)
	from := &Thread{VesselID: &v1, Context: Context{CR3: 0x1000}}
	to := &Thread{VesselID: &v2, Context: Context{CR3: 0x2000}}

	d := PlanSwitch(from, to)
	require.True(t, d.UpdateRSP0)
	require.Equal(t, to.KernelStackTop, d.NewRSP0)
	require.True(t, d.WriteCR3)
	require.Equal(t, uint64(0x2000), d.NewCR3)

	same := PlanSwitch(to, to)
	require.False(t, same.UpdateRSP0)
	require.False(t, same.WriteCR3)
}

func TestHarmonyAccounting(t *testing.T) {
	l := New()
	t1 := l.CreateThread(10, nil, 0, 0x1000)
	l.CreateThread(10, nil, 0, 0x2000)
	l.SelectNext()

	require.Zero(t, t1.HarmonyScore)
	l.YieldNow()
	require.InDelta(t, harmonyIncrement, t1.HarmonyScore, 1e-9)
	require.EqualValues(t, 1, t1.Yields)

	t1.HarmonyScore = harmonyMax
	t1.DecayQuantum()
	require.InDelta(t, harmonyMax-harmonyDecrement, t1.HarmonyScore, 1e-9)
}

func TestSnapshotReturnsEveryThread(t *testing.T) {
	l := New()
	l.CreateThread(10, nil, 0, 0x1000)
	l.CreateThread(5, nil, 0, 0x2000)

	snap := l.Snapshot()
	require.Len(t, snap, 2)
}
