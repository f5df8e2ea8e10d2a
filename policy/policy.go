// Package policy implements the boot-time configuration layer: a TOML
// document (parsed with github.com/BurntSushi/toml, compiled ahead of
// time by cmd/policygen into a Go literal for the actual kernel
// binary) describing per-Vessel resource limits and a system-wide
// Vessel budget.
package policy

import (
	"io"
	"sync/atomic"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"aethelos/vessel"
)

// Limits is the decoded shape of the policy TOML document. Field
// names are capitalized to match Go convention; BurntSushi/toml
// matches TOML keys case-insensitively against them.
type Limits struct {
	MaxVessels       int64
	UserStackPages   uint64
	KernelStackPages uint64
	GuardPages       uint64
	MaxCapabilities  int

	QuantumTicks      uint64 // timer ticks per scheduling quantum, §4.5
	PreemptionEnabled bool
	ManaPoolPages     uint64 // pages reserved for the Mana Pool heap, §4.3
	KASLREntropyBits  uint   // not read by entropy.KASLROffset, which always draws 9 bits, §4.6
}

// Default matches vessel.DefaultLimits plus a generous system-wide
// Vessel cap, used when no policy document is supplied (tests, or a
// boot image built without cmd/policygen).
var Default = Limits{
	MaxVessels:       1024,
	UserStackPages:   vessel.DefaultLimits.UserStackPages,
	KernelStackPages: vessel.DefaultLimits.KernelStackPages,
	GuardPages:       vessel.DefaultLimits.GuardPages,
	MaxCapabilities:  vessel.DefaultLimits.MaxCapabilities,

	QuantumTicks:      10,
	PreemptionEnabled: false,
	ManaPoolPages:     2048, // 8 MiB, matching the audit note's heap figure
	KASLREntropyBits:  8,
}

// Defaults returns Default. A file generated by cmd/policygen
// overwrites Default from its init(), so Defaults then returns the
// generated limits.
func Defaults() Limits { return Default }

// Load decodes a policy document from r over a copy of Default, so any
// field the document omits keeps Default's value.
func Load(r io.Reader) (Limits, error) {
	l := Default
	if _, err := toml.NewDecoder(r).Decode(&l); err != nil {
		return Limits{}, errors.Wrap(err, "decoding policy document")
	}
	return l, nil
}

// ResourceLimits converts the per-Vessel fields into the shape
// vessel.MoorVessel expects.
func (l Limits) ResourceLimits() vessel.ResourceLimits {
	return vessel.ResourceLimits{
		UserStackPages:   l.UserStackPages,
		KernelStackPages: l.KernelStackPages,
		GuardPages:       l.GuardPages,
		MaxCapabilities:  l.MaxCapabilities,
	}
}

// Budget is an atomically-updated system-wide resource counter,
// adapted from Sysatomic_t: Taken decrements and fails (leaving the
// counter unchanged) if that would drive it negative, modeling a
// fixed-size pool rather than an unbounded one.
type Budget struct {
	remaining int64
}

// NewBudget builds a Budget starting at n.
func NewBudget(n int64) *Budget {
	return &Budget{remaining: n}
}

// Given returns n units to the budget.
func (b *Budget) Given(n int64) {
	atomic.AddInt64(&b.remaining, n)
}

// Taken tries to remove n units, reporting whether the budget covered
// it.
func (b *Budget) Taken(n int64) bool {
	if atomic.AddInt64(&b.remaining, -n) >= 0 {
		return true
	}
	atomic.AddInt64(&b.remaining, n)
	return false
}

// Take removes one unit.
func (b *Budget) Take() bool { return b.Taken(1) }

// Give returns one unit.
func (b *Budget) Give() { b.Given(1) }

// Remaining reports the current balance.
func (b *Budget) Remaining() int64 {
	return atomic.LoadInt64(&b.remaining)
}
