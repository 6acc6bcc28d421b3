package randutil

import (
	rand "math/rand/v2"
	"sync"
	"time"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Seed returns seed unchanged, or a time-derived seed when seed is zero.
func Seed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// Source hands out independent *rand.Rand values derived from a single root
// seed, so every room gets its own generator while the whole server stays
// reproducible for a fixed seed.
type Source struct {
	mu   sync.Mutex
	root *rand.Rand
}

// NewSource creates a Source from seed.
func NewSource(seed int64) *Source {
	return &Source{root: New(seed)}
}

// Next returns a new generator seeded from the root sequence.
func (s *Source) Next() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return New(s.root.Int64())
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
