package oracle

import (
	"github.com/rs/zerolog/log"

	"github.com/domino14/dilemma/game"
)

// Oracle runs the determinism check for a pair of strategies.
type Oracle struct {
	chances *TurnChances
}

func New(chances *TurnChances) *Oracle {
	return &Oracle{chances: chances}
}

func (o *Oracle) Chances() *TurnChances {
	return o.chances
}

// Check plays a full MaxTurns game, asking each strategy for every move
// twice with the same history: once for the move that is actually played,
// and once with a separately threaded memory. If any pair of answers
// differs, the strategies are not deterministic and ok is false.
//
// The probe shares the strategy instance with the official call, so a
// strategy keeping state outside of its memory is generally caught as well.
// Hidden state that happens to give the same answer twice in a row (say,
// a wall clock read) is not.
func (o *Oracle) Check(a, b game.Strategy) (h *game.History, ok bool, err error) {
	turns := o.chances.MaxTurns()
	h = game.NewHistory(turns)
	var memA, memB, probeA, probeB game.Memory
	for t := 0; t < turns; t++ {
		moveA, moveB, err := game.Turn(h, t, a, b, &memA, &memB)
		if err != nil {
			return nil, false, err
		}
		pa, pb, err := game.Turn(h, t, a, b, &probeA, &probeB)
		if err != nil {
			return nil, false, err
		}
		if pa != moveA || pb != moveB {
			log.Debug().Int("turn", t).Msg("probe-disagrees")
			return nil, false, nil
		}
		h.Append(moveA, moveB)
	}
	return h, true, nil
}

// Evaluate returns the exact expected scores for a and b if they are
// deterministic. ok is false when they are not and must be sampled.
func (o *Oracle) Evaluate(a, b game.Strategy) (scoreA, scoreB float64, h *game.History, ok bool, err error) {
	h, ok, err = o.Check(a, b)
	if err != nil || !ok {
		return 0, 0, nil, ok, err
	}
	scoreA, scoreB, err = o.chances.Expected(h)
	if err != nil {
		return 0, 0, nil, false, err
	}
	return scoreA, scoreB, h, true, nil
}
