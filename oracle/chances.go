// Package oracle decides whether a pair of strategies plays the same game
// every time, and if so computes their exact expected scores without
// sampling.
package oracle

import (
	"errors"
	"fmt"

	"github.com/domino14/dilemma/game"
)

// TurnChances is the probability that a game stops right after each turn
// from MinTurns-1 up to MaxTurns-1 (zero-indexed). It is normalized to sum
// to 1 so that, for example, two always-cooperators are expected to score
// exactly the mutual cooperation payoff.
type TurnChances struct {
	minTurns int
	maxTurns int
	p        []float64
}

// NewTurnChances builds the table for a per-turn stopping hazard of
// 1/scale once minTurns have been played.
func NewTurnChances(minTurns, maxTurns int, scale float64) (*TurnChances, error) {
	if minTurns < 1 {
		return nil, fmt.Errorf("min turns must be positive, got %d", minTurns)
	}
	if maxTurns < minTurns {
		return nil, fmt.Errorf("max turns (%d) must be at least min turns (%d)", maxTurns, minTurns)
	}
	if scale <= 0 {
		return nil, errors.New("length scale must be positive")
	}
	h := 1 / scale
	n := maxTurns - minTurns + 1
	p := make([]float64, n)

	// stopped is the chance the game has already stopped before step i.
	stopped := 0.0
	total := 0.0
	for i := range n {
		p[i] = (1 - stopped) * h
		stopped += p[i]
		total += p[i]
	}
	for i := range p {
		p[i] /= total
	}
	return &TurnChances{minTurns: minTurns, maxTurns: maxTurns, p: p}, nil
}

// Len is the number of eligible stopping turns.
func (tc *TurnChances) Len() int {
	return len(tc.p)
}

// At returns the chance that the game stops right after turn
// MinTurns-1+i.
func (tc *TurnChances) At(i int) float64 {
	return tc.p[i]
}

// Sum of all entries; 1 up to rounding.
func (tc *TurnChances) Sum() float64 {
	s := 0.0
	for _, v := range tc.p {
		s += v
	}
	return s
}

func (tc *TurnChances) MinTurns() int { return tc.minTurns }
func (tc *TurnChances) MaxTurns() int { return tc.maxTurns }

// Expected returns both players' expected average score for a history that
// does not depend on when the game stops. Turns before MinTurns-1 are
// never a stopping point but still count towards the running score.
// The history must be MaxTurns long.
func (tc *TurnChances) Expected(h *game.History) (float64, float64, error) {
	if h.Len() != tc.maxTurns {
		return 0, 0, fmt.Errorf("history has %d turns, expected %d", h.Len(), tc.maxTurns)
	}
	first := tc.minTurns - 1
	var scoreA, scoreB int
	var totalA, totalB float64
	for t := 0; t < tc.maxTurns; t++ {
		a, b := h.Rows[0][t], h.Rows[1][t]
		scoreA += game.Payoff(a, b)
		scoreB += game.Payoff(b, a)
		if t < first {
			continue
		}
		w := tc.p[t-first] / float64(t+1)
		totalA += float64(scoreA) * w
		totalB += float64(scoreB) * w
	}
	return totalA, totalB, nil
}
