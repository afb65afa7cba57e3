// Package rng provides the injectable randomness used by every game.
// Production code uses Default(); tests use NewSeeded or a scripted Source
// so that outcomes are reproducible.
package rng

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Source is the only randomness capability games depend on.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Bool returns a fair coin flip.
	Bool() bool
}

type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	// 53 bits fill the float64 mantissa exactly
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}

func (cryptoSource) Bool() bool {
	var buf [1]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.IntN(2) == 1
	}
	return buf[0]&1 == 1
}

// Default returns a crypto-backed source. It is safe for concurrent use.
func Default() Source { return cryptoSource{} }

type seededSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded returns a reproducible PCG-backed source.
func NewSeeded(seed uint64) Source {
	return &seededSource{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *seededSource) Bool() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(2) == 1
}

// Pick returns a uniform index in [0, n). n must be positive.
func Pick(src Source, n int) int {
	if n <= 1 {
		return 0
	}
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Chance reports whether a draw falls under probability p.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	return src.Float64() < p
}

// Scripted replays fixed draws. Once a script is exhausted it returns
// zero values. Intended for tests of packages that consume a Source.
type Scripted struct {
	mu     sync.Mutex
	Floats []float64
	Bools  []bool
}

// Float64 returns the next scripted float.
func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return 0
	}
	f := s.Floats[0]
	s.Floats = s.Floats[1:]
	return f
}

// Bool returns the next scripted flip.
func (s *Scripted) Bool() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Bools) == 0 {
		return false
	}
	b := s.Bools[0]
	s.Bools = s.Bools[1:]
	return b
}
