package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/domino14/dilemma/tournament"
)

const barWidth = 50

// Bar draws a progress bar width characters wide, not counting brackets.
func Bar(width int, completion float64) string {
	done := int(math.Round(float64(width) * completion))
	done = max(0, min(done, width))
	return "[" + strings.Repeat("=", done) + strings.Repeat(" ", width-done) + "]"
}

// ProgressLine is the status line shown while a tournament runs.
func ProgressLine(p tournament.Progress) string {
	var completion float64
	if p.Total > 0 {
		completion = float64(p.Completed) / float64(p.Total)
	}
	return fmt.Sprintf("%d/%d pairings (%d runs per pairing, %d hits, %d misses) %s",
		p.Completed, p.Total, p.Runs, p.Hits, p.Misses, Bar(barWidth, completion))
}

// ProgressPrinter returns a progress callback that redraws the status line
// on w, ending it with a newline after the last pairing.
func ProgressPrinter(w io.Writer) func(tournament.Progress) {
	return func(p tournament.Progress) {
		fmt.Fprint(w, "\r"+ProgressLine(p))
		if p.Completed == p.Total {
			fmt.Fprintln(w)
		}
	}
}
