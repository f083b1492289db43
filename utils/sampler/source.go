// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sampler

import (
	"math/rand"
	"sync"
	"time"
)

// Source is a lockable source of uniform randomness shared by the trade
// loops. math/rand sources are not safe for concurrent use, so every draw
// holds the lock.
type Source struct {
	lock sync.Mutex
	rng  *rand.Rand
}

func NewSource(seed int64) *Source {
	return &Source{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a uniform draw from [0, 1).
func (s *Source) Float64() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.rng.Float64()
}

// FloatBetween returns a uniform draw from [min, max].
func (s *Source) FloatBetween(min, max float64) float64 {
	if max <= min {
		return min
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	return min + s.rng.Float64()*(max-min)
}

// DurationBetween returns a uniform draw from [min, max].
func (s *Source) DurationBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	return min + time.Duration(s.rng.Int63n(int64(max-min)+1))
}

// Intn returns a uniform draw from [0, n).
func (s *Source) Intn(n int) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.rng.Intn(n)
}
