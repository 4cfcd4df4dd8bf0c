package game

import "strings"

// Move is a single move code.
type Move uint8

const (
	Defect    Move = 0
	Cooperate Move = 1
)

var moveLabels = [2]string{"D", "C"}

// Synonyms for defecting. Any other string is a cooperation.
var defectWords = []string{"defect", "tell truth"}

// Label returns "D" or "C".
func (m Move) Label() string {
	return moveLabels[m.Normalize()]
}

func (m Move) String() string {
	return m.Label()
}

// Normalize maps any non-zero code to Cooperate.
func (m Move) Normalize() Move {
	if m == Defect {
		return Defect
	}
	return Cooperate
}

// ParseMove converts a loosely typed move, as returned by script
// strategies, to a move code.
func ParseMove(v any) Move {
	switch t := v.(type) {
	case Move:
		return t.Normalize()
	case string:
		for _, w := range defectWords {
			if t == w {
				return Defect
			}
		}
		return Cooperate
	case bool:
		if t {
			return Cooperate
		}
		return Defect
	case int:
		return intMove(int64(t))
	case int64:
		return intMove(t)
	case int32:
		return intMove(int64(t))
	case uint8:
		return intMove(int64(t))
	case float64:
		if t == 0 {
			return Defect
		}
		return Cooperate
	case nil:
		return Defect
	}
	return Cooperate
}

func intMove(i int64) Move {
	if i == 0 {
		return Defect
	}
	return Cooperate
}

// FormatMoves renders moves as labels separated by spaces, with a trailing
// space, e.g. "D C C ".
func FormatMoves(moves []Move) string {
	var sb strings.Builder
	sb.Grow(len(moves) * 2)
	for _, m := range moves {
		sb.WriteString(m.Label())
		sb.WriteByte(' ')
	}
	return sb.String()
}
