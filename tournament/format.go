package tournament

import (
	"strconv"
	"strings"

	"github.com/domino14/dilemma/game"
)

// FormatPair renders the plain-text block for one pairing: a header, one
// row of move labels per player, and each player's final score.
func FormatPair(a, b string, h *game.History, scoreA, scoreB, stdevA, stdevB float64) string {
	var sb strings.Builder
	sb.WriteString(a + " (P1)  VS.  " + b + " (P2)\n")
	if h != nil {
		for p := 0; p < 2; p++ {
			sb.WriteString(game.FormatMoves(h.Rows[p]))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Final score for " + a + ": " + formatFloat(scoreA) + " ± " + formatFloat(stdevA) + "\n")
	sb.WriteString("Final score for " + b + ": " + formatFloat(scoreB) + " ± " + formatFloat(stdevB) + "\n")
	sb.WriteString("\n")
	return sb.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
