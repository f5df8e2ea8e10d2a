// Package entropy seeds everything in the kernel that needs
// unpredictability at boot: per-thread stack canaries, the KASLR
// offset, and the capability HMAC seal key (§2, §4.6). It is the
// first subsystem bootglue.Boot brings up.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"golang.org/x/sys/cpu"
)

// Source is a seeded entropy pool. The zero value is not usable; call
// Init once at boot.
type Source struct {
	mu      sync.Mutex
	rdrand  bool
	drained bool
	pool    [32]byte
}

// Global is the single boot-time entropy source: a process-wide
// singleton with an explicit Init/use lifecycle rather than a static
// mut.
var Global = &Source{}

// Init seeds the pool from crypto/rand (itself backed by the OS CSPRNG
// on every platform Go supports) and, when RDRAND is available, XORs
// hardware-generated words into it. It must run exactly once, before any canary,
// KASLR offset, or capability key is derived.
func (s *Source) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rdrand = cpu.X86.HasRDRAND
	if _, err := rand.Read(s.pool[:]); err != nil {
		return err
	}
	if s.rdrand {
		s.mixRDRAND()
	}
	return nil
}

// mixRDRAND XORs hardware-generated words into the pool. rdrand64
// (rdrand_amd64.go) wraps the tightly scoped RDRAND asm stub in
// rdrand_amd64.s, so the rest of the kernel never depends on how the
// bytes were produced.
func (s *Source) mixRDRAND() {
	for i := 0; i < len(s.pool); i += 8 {
		v, ok := rdrand64()
		if !ok {
			break
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], v)
		for j := range buf {
			s.pool[i+j] ^= buf[j]
		}
	}
}

// HasHardwareRNG reports whether RDRAND contributed to the pool.
func (s *Source) HasHardwareRNG() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rdrand
}

// Bytes fills dst with fresh entropy derived from the pool. Each call
// advances an internal counter so repeated calls never repeat output,
// matching the "seeds canaries, KASLR offset, capability seal key"
// requirement of a single shared source (§2).
func (s *Source) Bytes(dst []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(dst) > 0 {
		n := copy(dst, s.pool[:])
		dst = dst[n:]
		s.ratchet()
	}
}

// ratchet is a simple one-way mix so the pool can be drawn from
// repeatedly without reuse; it is not a cryptographic sponge, merely a
// deterministic-from-this-boot expansion of the seed.
func (s *Source) ratchet() {
	var carry byte = 0x9e
	for i := range s.pool {
		s.pool[i] ^= carry
		carry = s.pool[i]<<1 | s.pool[i]>>7
	}
	s.drained = true
}

// Uint64 returns a single 64-bit entropy value.
func (s *Source) Uint64() uint64 {
	var buf [8]byte
	s.Bytes(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// Canary derives a fresh per-thread or per-pool stack/heap canary
// value (§3's Sigil, §4.3's per-pool canary).
func (s *Source) Canary() uint64 {
	return s.Uint64()
}

// KASLROffset returns a 16 MiB-aligned offset for §4.6's Ward of the
// Unseen Paths, drawn from 9 random bits: one of 512 slots of 16 MiB
// each, i.e. an 8 GiB window. That keeps the randomized base canonical
// and inside the upper half of the address space, small enough that
// callers can add it to every static symbol without overflowing the
// canonical range. The offset carries 9 bits of entropy, not 24.
func (s *Source) KASLROffset() uint64 {
	const (
		alignShift = 24 // 16 MiB
		slotBits   = 9
		slotMask   = (1 << slotBits) - 1
	)
	slot := s.Uint64() & slotMask
	return slot << alignShift
}

// SealKey derives the 32-byte HMAC key used to seal capabilities
// (§4.4). It must be called exactly once at boot and the result kept
// only in kernel memory; see capability.Table.
func (s *Source) SealKey() [32]byte {
	var key [32]byte
	s.Bytes(key[:])
	return key
}
