package game

import (
	"encoding/json"
	"fmt"
	"slices"
)

// History is a 2×T grid of moves. Row 0 belongs to player A, row 1 to
// player B.
type History struct {
	Rows [2][]Move
}

// NewHistory returns an empty history with room for turns moves per player.
func NewHistory(turns int) *History {
	return &History{Rows: [2][]Move{
		make([]Move, 0, turns),
		make([]Move, 0, turns),
	}}
}

// Len is the number of turns played.
func (h *History) Len() int {
	return len(h.Rows[0])
}

// Append records one turn.
func (h *History) Append(a, b Move) {
	h.Rows[0] = append(h.Rows[0], a)
	h.Rows[1] = append(h.Rows[1], b)
}

// ViewFor returns the first k turns as seen by the player in seat (0 or 1):
// that player's own moves are row 0 of the view.
func (h *History) ViewFor(seat, k int) View {
	own, opp := h.Rows[0], h.Rows[1]
	if seat == 1 {
		own, opp = opp, own
	}
	return View{own: own[:k:k], opp: opp[:k:k]}
}

// Flipped returns a copy of the history with the rows swapped.
func (h *History) Flipped() *History {
	return &History{Rows: [2][]Move{
		slices.Clone(h.Rows[1]),
		slices.Clone(h.Rows[0]),
	}}
}

// Clone returns a deep copy.
func (h *History) Clone() *History {
	return &History{Rows: [2][]Move{
		slices.Clone(h.Rows[0]),
		slices.Clone(h.Rows[1]),
	}}
}

// Scores returns the average per-turn score of both players.
func (h *History) Scores() (float64, float64) {
	n := h.Len()
	if n == 0 {
		return 0, 0
	}
	var a, b int
	for t := 0; t < n; t++ {
		a += Payoff(h.Rows[0][t], h.Rows[1][t])
		b += Payoff(h.Rows[1][t], h.Rows[0][t])
	}
	return float64(a) / float64(n), float64(b) / float64(n)
}

// Codes returns row i as plain integer codes.
func (h *History) Codes(i int) []int {
	out := make([]int, len(h.Rows[i]))
	for t, m := range h.Rows[i] {
		out[t] = int(m)
	}
	return out
}

// MarshalJSON encodes the history as [[a0, a1, ...], [b0, b1, ...]].
func (h *History) MarshalJSON() ([]byte, error) {
	return json.Marshal([2][]int{h.Codes(0), h.Codes(1)})
}

func (h *History) UnmarshalJSON(data []byte) error {
	var rows [][]int
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != 2 {
		return fmt.Errorf("history must have 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(rows[1]) {
		return fmt.Errorf("history rows differ in length: %d vs %d", len(rows[0]), len(rows[1]))
	}
	for i := range 2 {
		h.Rows[i] = make([]Move, len(rows[i]))
		for t, c := range rows[i] {
			h.Rows[i][t] = intMove(int64(c))
		}
	}
	return nil
}

// View is a read-only snapshot of the turns played so far, from one
// player's perspective. Strategies cannot modify it, and it never grows.
type View struct {
	own []Move
	opp []Move
}

// Len is the number of turns in the view.
func (v View) Len() int {
	return len(v.own)
}

// Own returns the viewer's own move at turn t.
func (v View) Own(t int) Move {
	return v.own[t]
}

// Opp returns the opponent's move at turn t.
func (v View) Opp(t int) Move {
	return v.opp[t]
}

// OwnMoves returns a copy of the viewer's moves.
func (v View) OwnMoves() []Move {
	return slices.Clone(v.own)
}

// OppMoves returns a copy of the opponent's moves.
func (v View) OppMoves() []Move {
	return slices.Clone(v.opp)
}
