package pagetable

import (
	"testing"

	"aethelos/defs"
	"aethelos/mem"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *Space) {
	t.Helper()
	a := mem.New([]mem.Region{{Start: 0, Length: 4096 * mem.PageSize}}, nil)
	m := NewManager(a)
	sp, err := m.NewSpace()
	require.Zero(t, err)
	return m, sp
}

func TestMapRejectsWritableWithoutNX(t *testing.T) {
	m, sp := newTestManager(t)

	err := m.Map(sp, 0x400000, mem.Frame(0x123000), Present|Writable|User, false)
	require.Equal(t, defs.EWX, err)

	_, _, ok := m.Walk(sp, 0x400000)
	require.False(t, ok, "no entry may be installed after a W^X rejection")
}

func TestMapUnmapRoundTrip(t *testing.T) {
	m, sp := newTestManager(t)

	const virt = 0x400000
	err := m.Map(sp, virt, mem.Frame(0x123000), Present|User|NX, false)
	require.Zero(t, err)

	phys, flags, ok := m.Walk(sp, virt)
	require.True(t, ok)
	require.Equal(t, mem.Frame(0x123000), phys)
	require.True(t, flags.has(User))

	freed, err := m.Unmap(sp, virt)
	require.Zero(t, err)
	require.Equal(t, mem.Frame(0x123000), freed)

	_, _, ok = m.Walk(sp, virt)
	require.False(t, ok, "walk after unmap must report no mapping")
}

func TestUnmapNotMappedFails(t *testing.T) {
	m, sp := newTestManager(t)
	_, err := m.Unmap(sp, 0x600000)
	require.Equal(t, defs.ENOTMAPPED, err)
}

func TestMapAlreadyMappedWithDifferentFlagsFails(t *testing.T) {
	m, sp := newTestManager(t)
	require.Zero(t, m.Map(sp, 0x400000, mem.Frame(0x123000), Present|User|NX, false))

	err := m.Map(sp, 0x400000, mem.Frame(0x123000), Present|NX, false)
	require.Equal(t, defs.EALREADYMAPPED, err)

	// Re-mapping identical flags is idempotent.
	require.Zero(t, m.Map(sp, 0x400000, mem.Frame(0x123000), Present|User|NX, false))
}

func TestNonCanonicalAddressRejected(t *testing.T) {
	m, sp := newTestManager(t)
	const nonCanonical = 0x0001_0000_0000_0000 // bits 48..63 not all equal
	require.Equal(t, defs.EINVAL, m.Map(sp, nonCanonical, mem.Frame(0x1000), Present|NX, false))
	_, _, ok := m.Walk(sp, nonCanonical)
	require.False(t, ok)
}

func TestUserAndGlobalMutuallyExclusive(t *testing.T) {
	m, sp := newTestManager(t)
	err := m.Map(sp, 0x400000, mem.Frame(0x123000), Present|User|Global|NX, false)
	require.Equal(t, defs.EINVAL, err)
}

func TestCloneKernelMappingsSharesChildTables(t *testing.T) {
	a := mem.New([]mem.Region{{Start: 0, Length: 4096 * mem.PageSize}}, nil)
	m := NewManager(a)

	kernel, err := m.NewSpace()
	require.Zero(t, err)
	const kvirt = 0xFFFF_8000_0010_0000 // PML4 index >= 256
	require.Zero(t, m.Map(kernel, kvirt, mem.Frame(0x700000), Present|Global|NX, false))

	var tmpl Table
	tmpl[256] = m.table(kernel.PML4)[256]
	m.SetKernelTemplate(tmpl)

	vessel, err := m.NewSpace()
	require.Zero(t, err)

	phys, _, ok := m.Walk(vessel, kvirt)
	require.True(t, ok, "cloned kernel half must already resolve the kernel mapping")
	require.Equal(t, mem.Frame(0x700000), phys)
}

func TestSealRangeClearsWritable(t *testing.T) {
	m, sp := newTestManager(t)
	require.Zero(t, m.Map(sp, 0x400000, mem.Frame(0x100000), Present|Writable|NX, false))

	require.Zero(t, m.SealRange(sp, 0x400000, mem.PageSize))

	_, flags, ok := m.Walk(sp, 0x400000)
	require.True(t, ok)
	require.False(t, flags.has(Writable), "sealed range must not remain writable")
}

func TestPhysToVirtAppliesKASLROffset(t *testing.T) {
	m, sp := newTestManager(t)
	m.InstallKASLRAlias(sp, 0x1000_0000)
	require.Equal(t, KernelBase+0x1000_0000+0x2000, m.PhysToVirt(mem.Frame(0x2000)))
}
