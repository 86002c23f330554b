package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NormalizedEntropy returns the Shannon entropy of the positive part of scores,
// treated as a probability distribution, divided by log(len(scores)).
// The result lies in [0, 1]; 0 when no score is positive.
func NormalizedEntropy(scores []float64) float64 {
	if len(scores) < 2 {
		return 0.0
	}

	positive := make([]float64, len(scores))
	for i, s := range scores {
		if s > 0 && !math.IsNaN(s) {
			positive[i] = s
		}
	}

	sum := floats.Sum(positive)
	if sum == 0 {
		return 0.0
	}
	floats.Scale(1/sum, positive)

	return stat.Entropy(positive) / math.Log(float64(len(scores)))
}
