package util

import "math/rand"

// NewRand builds the run's random source. Exactly one of these exists per
// simulation; every consumer (scheduler, engines, agents) shares it, which is
// what makes a seed reproduce a run.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
