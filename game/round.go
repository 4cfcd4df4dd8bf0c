package game

import (
	"fmt"
	"math"
)

const (
	DefaultMinTurns    = 200
	DefaultLengthScale = 40.0
)

// Runner plays rounds between two strategies.
type Runner struct {
	MinTurns    int
	LengthScale float64
	Source      UniformSource
}

// NewRunner returns a runner using the default uniform source.
func NewRunner(minTurns int, scale float64) *Runner {
	return &Runner{MinTurns: minTurns, LengthScale: scale, Source: DefaultSource}
}

// DrawLength draws a game length. Past MinTurns every turn has the same
// chance of being the last one, so the turn number tells a strategy
// nothing about when the game ends.
func (r *Runner) DrawLength() int {
	u := r.Source.Float64()
	return int(math.Floor(float64(r.MinTurns) - r.LengthScale*math.Log(1-u)))
}

// PlayRound plays one round of randomly drawn length.
func (r *Runner) PlayRound(a, b Strategy) (*History, error) {
	return Play(a, b, r.DrawLength())
}

// Play plays exactly turns turns between a (seat 0) and b (seat 1).
func Play(a, b Strategy, turns int) (*History, error) {
	h := NewHistory(turns)
	var memA, memB Memory
	for t := 0; t < turns; t++ {
		moveA, moveB, err := Turn(h, t, a, b, &memA, &memB)
		if err != nil {
			return nil, err
		}
		h.Append(moveA, moveB)
	}
	return h, nil
}

// Turn asks both strategies for their move at turn t, threading each
// strategy's memory through memA and memB. It doesn't modify h.
func Turn(h *History, t int, a, b Strategy, memA, memB *Memory) (Move, Move, error) {
	moveA, newA, err := a.Decide(h.ViewFor(0, t), *memA)
	if err != nil {
		return 0, 0, fmt.Errorf("player A at turn %d: %w", t, err)
	}
	moveB, newB, err := b.Decide(h.ViewFor(1, t), *memB)
	if err != nil {
		return 0, 0, fmt.Errorf("player B at turn %d: %w", t, err)
	}
	*memA, *memB = newA, newB
	return moveA.Normalize(), moveB.Normalize(), nil
}
