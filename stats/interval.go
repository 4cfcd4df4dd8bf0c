package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ZVal returns the two-tailed z-value for a confidence level given in
// percent.
func ZVal(confidence float64) float64 {
	return distuv.UnitNormal.Quantile((1 + confidence/100) / 2)
}

// HalfWidth returns the half-width of the two-tailed confidence interval
// around a mean with the given stdev over n samples. It is 0 for fewer
// than two samples.
func HalfWidth(stdev float64, n int, confidence float64) float64 {
	if n < 2 {
		return 0
	}
	return ZVal(confidence) * stdev / math.Sqrt(float64(n))
}
