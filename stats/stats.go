// Package stats reduces round outcomes to per-player means and standard
// deviations.
package stats

import "math"

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Statistic is a running mean and variance.
type Statistic struct {
	n int

	// For Welford's algorithm:
	mean float64
	m2   float64
}

func (s *Statistic) Push(val float64) {
	s.n++
	if s.n == 1 {
		s.mean = val
		s.m2 = 0
		return
	}
	delta := val - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (val - s.mean)
}

func (s *Statistic) Mean() float64 {
	if s.n > 0 {
		return s.mean
	}
	return 0.0
}

// Variance is the sample variance; 0 with fewer than two samples.
func (s *Statistic) Variance() float64 {
	if s.n <= 1 {
		return 0.0
	}
	return s.m2 / float64(s.n-1)
}

func (s *Statistic) Stdev() float64 {
	return math.Sqrt(s.Variance())
}

// StandardError returns the standard error of the mean.
func (s *Statistic) StandardError() float64 {
	if s.n == 0 {
		return 0.0
	}
	return math.Sqrt(s.Variance() / float64(s.n))
}

func (s *Statistic) Iterations() int {
	return s.n
}

// Outcome is one round's average per-turn score for each player.
type Outcome struct {
	A float64
	B float64
}

// Summary aggregates one or more outcomes.
type Summary struct {
	MeanA  float64
	MeanB  float64
	StdevA float64
	StdevB float64
	N      int
}

// Summarize reduces outcomes to means and sample standard deviations. The
// standard deviation of a single outcome is 0.
func Summarize(outcomes []Outcome) Summary {
	var a, b Statistic
	for _, o := range outcomes {
		a.Push(o.A)
		b.Push(o.B)
	}
	return Summary{
		MeanA:  a.Mean(),
		MeanB:  b.Mean(),
		StdevA: a.Stdev(),
		StdevB: b.Stdev(),
		N:      a.Iterations(),
	}
}
