package bootglue

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"aethelos/policy"
	"aethelos/syscallentry"

	"github.com/stretchr/testify/require"
)

func buildMinimalELF(t *testing.T, entry uint64, code []byte) []byte {
	t.Helper()
	var buf bytes.Buffer

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_X86_64),
		Version:   1,
		Entry:     entry,
		Phoff:     64,
		Ehsize:    64,
		Phentsize: 56,
		Phnum:     1,
	}
	hdr.Ident[0], hdr.Ident[1], hdr.Ident[2], hdr.Ident[3] = 0x7f, 'E', 'L', 'F'
	hdr.Ident[4] = byte(elf.ELFCLASS64)
	hdr.Ident[5] = byte(elf.ELFDATA2LSB)
	hdr.Ident[6] = byte(elf.EV_CURRENT)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &hdr))

	prog := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Off:    64 + 56,
		Vaddr:  entry,
		Paddr:  entry,
		Filesz: uint64(len(code)),
		Memsz:  uint64(len(code)),
		Align:  0x1000,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &prog))
	buf.Write(code)
	return buf.Bytes()
}

func buildMultibootWithLargeRegion(t *testing.T) []byte {
	t.Helper()
	var buf []byte
	buf = append(buf, make([]byte, 8)...)

	mmapStart := len(buf)
	mmapSize := uint32(8 + 8 + 24)
	buf = append(buf, make([]byte, mmapSize)...)
	putTagHeader(buf, mmapStart, tagMemoryMap, mmapSize)
	binary.LittleEndian.PutUint32(buf[mmapStart+8:mmapStart+12], 24)
	e0 := mmapStart + 16
	binary.LittleEndian.PutUint64(buf[e0:e0+8], 0)
	binary.LittleEndian.PutUint64(buf[e0+8:e0+16], 0x4000000) // 64 MiB
	binary.LittleEndian.PutUint32(buf[e0+16:e0+20], uint32(MemAvailable))

	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	endStart := len(buf)
	buf = append(buf, make([]byte, 8)...)
	putTagHeader(buf, endStart, tagMbSectionEnd, 8)

	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)))
	return buf
}

func testSelectors() syscallentry.Selectors {
	return syscallentry.Selectors{KernelCS: 0x08, UserCS: 0x20 | 3, UserSS: 0x18 | 3}
}

func TestBootWiresEverySubsystemWithoutInit(t *testing.T) {
	k, err := Boot(Config{
		Multiboot: buildMultibootWithLargeRegion(t),
		Selectors: testSelectors(),
		Policy:    policy.Default,
	})
	require.NoError(t, err)
	require.NotNil(t, k.Frames)
	require.NotNil(t, k.Pages)
	require.NotNil(t, k.ManaPool)
	require.NotNil(t, k.Wards)
	require.NotNil(t, k.Loom)
	require.NotNil(t, k.Harbor)
	require.NotNil(t, k.IDT)
	require.Nil(t, k.InitVessel)
}

func TestBootMoorsInitVesselWhenELFProvided(t *testing.T) {
	elfBytes := buildMinimalELF(t, 0x400000, []byte{0x90, 0x90})
	k, err := Boot(Config{
		Multiboot: buildMultibootWithLargeRegion(t),
		Selectors: testSelectors(),
		Policy:    policy.Default,
		InitELF:   elfBytes,
	})
	require.NoError(t, err)
	require.NotNil(t, k.InitVessel)
	require.Equal(t, "init", k.InitVessel.Name)
	require.EqualValues(t, policy.Default.MaxVessels-1, k.Vessels.Remaining())
}

func TestBootRejectsInitVesselOnceBudgetExhausted(t *testing.T) {
	elfBytes := buildMinimalELF(t, 0x400000, []byte{0x90, 0x90})
	limits := policy.Default
	limits.MaxVessels = 0
	_, err := Boot(Config{
		Multiboot: buildMultibootWithLargeRegion(t),
		Selectors: testSelectors(),
		Policy:    limits,
		InitELF:   elfBytes,
	})
	require.Error(t, err)
}

func TestBootRejectsInconsistentSelectors(t *testing.T) {
	_, err := Boot(Config{
		Multiboot: buildMultibootWithLargeRegion(t),
		Selectors: syscallentry.Selectors{KernelCS: 0x08, UserCS: 0x10, UserSS: 0x99},
		Policy:    policy.Default,
	})
	require.Error(t, err)
}
