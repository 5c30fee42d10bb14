// Package rng provides the injectable random source used by the engine for
// shuffling and random targeting. Matches are deterministic given a seed, so
// a recorded seed replays a match exactly.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// Source supplies randomness to a single match. Implementations must be
// deterministic for a given seed.
type Source interface {
	// Intn returns an integer in [0, bound). bound must be > 0.
	Intn(bound int) int
	// Shuffle permutes n elements using the provided swap function.
	Shuffle(n int, swap func(i, j int))
}

// seededSource wraps math/rand with a mutex so a source shared between a
// match goroutine and its host is safe.
type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded returns a deterministic Source for the given seed.
func NewSeeded(seed int64) Source {
	return &seededSource{r: rand.New(rand.NewSource(seed))}
}

func (s *seededSource) Intn(bound int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(bound)
}

func (s *seededSource) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Shuffle(n, swap)
}

// NewSeed generates a high-entropy seed using crypto/rand, suitable for
// initializing a deterministic Source for a fresh match.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
