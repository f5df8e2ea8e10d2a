// Package profile exports Loom's per-thread harmony and accounting
// counters as a pprof profile, turning per-thread PMC-style timing
// and accounting data into a format introspectable with the standard
// pprof tool instead of bespoke dump code.
package profile

import (
	"io"

	"github.com/google/pprof/profile"

	"aethelos/loom"
	"aethelos/vessel"
)

const (
	sampleHarmony = "harmony"
	sampleYields  = "yields"
	sampleUserNs  = "cpu_user"
	sampleSysNs   = "cpu_sys"
)

// Snapshot builds a pprof Profile with one sample per thread in l.
// Each sample's location names a function "kernel-thread" or
// "vessel-thread" and carries a "state" label; the thread id and
// Vessel name are not recorded. Each sample carries its harmony score (scaled x1000 so it survives pprof's
// int64 Value slots), yield count, and — when the thread belongs to a
// moored Vessel — accumulated user/system nanoseconds from that
// Vessel's Accounting.
func Snapshot(l *loom.Loom, h *vessel.Harbor) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: sampleHarmony, Unit: "milliharmony"},
			{Type: sampleYields, Unit: "count"},
			{Type: sampleUserNs, Unit: "nanoseconds"},
			{Type: sampleSysNs, Unit: "nanoseconds"},
		},
		TimeNanos: 0, // stamped by the caller if needed; this package never calls time.Now
	}

	var nextID uint64
	for _, t := range l.Snapshot() {
		nextID++
		name := threadLabel(t)

		fn := &profile.Function{ID: nextID, Name: name}
		loc := &profile.Location{ID: nextID, Line: []profile.Line{{Function: fn, Line: 0}}}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)

		userNs, sysNs := accountingFor(t, h)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value: []int64{
				int64(t.HarmonyScore * 1000),
				int64(t.Yields),
				userNs,
				sysNs,
			},
			Label: map[string][]string{
				"state": {stateLabel(t.State)},
			},
		})
	}
	return p
}

// Write renders the snapshot in pprof's gzipped protobuf wire format.
func Write(l *loom.Loom, h *vessel.Harbor, out io.Writer) error {
	return Snapshot(l, h).Write(out)
}

func threadLabel(t *loom.Thread) string {
	if t.VesselID == nil {
		return "kernel-thread"
	}
	return "vessel-thread"
}

func accountingFor(t *loom.Thread, h *vessel.Harbor) (userNs, sysNs int64) {
	if t.VesselID == nil || h == nil {
		return 0, 0
	}
	v, ok := h.Lookup(*t.VesselID)
	if !ok {
		return 0, 0
	}
	v.Accounting.Lock()
	defer v.Accounting.Unlock()
	return v.Accounting.UserNs, v.Accounting.SysNs
}

func stateLabel(s loom.State) string {
	switch s {
	case loom.Weaving:
		return "weaving"
	case loom.Resting:
		return "resting"
	case loom.Tangled:
		return "tangled"
	case loom.Fading:
		return "fading"
	default:
		return "unknown"
	}
}
