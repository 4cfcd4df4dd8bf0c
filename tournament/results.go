package tournament

import (
	"cmp"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/domino14/dilemma/cache"
	"github.com/domino14/dilemma/game"
	"github.com/domino14/dilemma/stats"
)

// PairResult is the outcome of one pairing.
type PairResult struct {
	A      string
	B      string
	ScoreA float64
	ScoreB float64
	StdevA float64
	StdevB float64
	// Samples is the number of rounds the scores were averaged over; 1 for
	// an exact result. It is 0 for results served from the cache.
	Samples       int
	Deterministic bool
	// History is the representative round: the deterministic trajectory or
	// the first sampled round.
	History *game.History
	Report  string
	Elapsed time.Duration
	Cached  bool
}

func fromEntry(p Pairing, e cache.Entry) PairResult {
	return PairResult{
		A:       p.A,
		B:       p.B,
		ScoreA:  e.ScoreA,
		ScoreB:  e.ScoreB,
		StdevA:  e.StdevA,
		StdevB:  e.StdevB,
		History: e.History,
		Report:  e.Report,
		Cached:  true,
	}
}

// Standing is one strategy's place in the final ranking.
type Standing struct {
	Name string
	// Rank starts at 1.
	Rank int
	// Score is the sum of the strategy's mean score over its pairings.
	Score    float64
	Pairings int
	// Average is Score divided by Pairings.
	Average float64
	// CI95 is the half-width of a 95% confidence interval around Average,
	// taken over the strategy's per-pairing scores.
	CI95 float64
	// Time is the compute time of every pairing the strategy played.
	Time time.Duration
}

// Results is the outcome of a tournament.
type Results struct {
	// Pairs are in enumeration order.
	Pairs []PairResult
	// Standings are in rank order.
	Standings []Standing
	Runs      int
	Hits      int
	Misses    int
}

// TotalTime is the compute time spent over all pairings.
func (r *Results) TotalTime() time.Duration {
	return lo.SumBy(r.Pairs, func(p PairResult) time.Duration { return p.Elapsed })
}

// Standing looks a strategy up by name.
func (r *Results) Standing(name string) (Standing, bool) {
	return lo.Find(r.Standings, func(s Standing) bool { return s.Name == name })
}

// rank totals the scores of names over pairs and sorts them by total,
// highest first. Ties keep the order of names.
func rank(names []string, pairs []PairResult) []Standing {
	standings := make([]Standing, len(names))
	scores := make([]stats.Statistic, len(names))
	idx := make(map[string]int, len(names))
	for i, n := range names {
		standings[i].Name = n
		idx[n] = i
	}
	add := func(name string, score float64, elapsed time.Duration) {
		i, ok := idx[name]
		if !ok {
			return
		}
		standings[i].Score += score
		standings[i].Pairings++
		standings[i].Time += elapsed
		scores[i].Push(score)
	}
	for _, p := range pairs {
		add(p.A, p.ScoreA, p.Elapsed)
		add(p.B, p.ScoreB, p.Elapsed)
	}
	for i := range standings {
		s := &standings[i]
		if s.Pairings > 0 {
			s.Average = s.Score / float64(s.Pairings)
		}
		s.CI95 = stats.HalfWidth(scores[i].Stdev(), scores[i].Iterations(), 95)
	}
	slices.SortStableFunc(standings, func(a, b Standing) int {
		return cmp.Compare(b.Score, a.Score)
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}
