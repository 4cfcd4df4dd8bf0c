// Package game encapsulates the mechanics of the iterated Prisoner's
// Dilemma: moves, the payoff table, move histories and the round runner.
// It doesn't care how a strategy decides on its move; strategies live
// outside of this package and are handed to a Runner.
package game

import (
	"math/rand/v2"

	"lukechampine.com/frand"
)

// Memory is whatever a strategy wants to carry from one turn to the next.
// The engine never looks inside it. A nil Memory means the strategy has not
// been called yet in this round.
type Memory any

// Strategy decides on a move given a read-only view of all prior turns,
// always seen from its own seat, and the memory it returned on its
// previous call.
type Strategy interface {
	Decide(h View, mem Memory) (Move, Memory, error)
}

// StrategyFunc adapts an ordinary function to the Strategy interface.
type StrategyFunc func(h View, mem Memory) (Move, Memory, error)

func (f StrategyFunc) Decide(h View, mem Memory) (Move, Memory, error) {
	return f(h, mem)
}

// UniformSource returns uniform random numbers in [0, 1).
type UniformSource interface {
	Float64() float64
}

type frandSource struct{}

func (frandSource) Float64() float64 {
	return frand.Float64()
}

// DefaultSource is backed by a fast CSPRNG and is safe for concurrent use.
var DefaultSource UniformSource = frandSource{}

// SeededSource returns a deterministic source. Not safe for concurrent use.
func SeededSource(seed1, seed2 uint64) UniformSource {
	return rand.New(rand.NewPCG(seed1, seed2))
}
