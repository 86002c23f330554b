package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrDegenerateInput is returned when one of the inputs has zero variance
	// and the correlation coefficient is undefined.
	ErrDegenerateInput = errors.New("degenerate input: zero variance")

	// ErrLengthMismatch is returned when the two series differ in length or are empty.
	ErrLengthMismatch = errors.New("series length mismatch")
)

// minStdDev is the standard deviation below which a series counts as constant.
// Rounding in the mean makes an exact zero test unreliable for constant inputs.
const minStdDev = 1e-12

// Pearson computes the Pearson correlation coefficient of x and y using the
// population (n) divisor for both covariance and standard deviations.
//
// Unlike a plain formula it never yields NaN: a constant series returns
// ErrDegenerateInput so callers can tell "no answer" from "no correlation".
func Pearson(x, y []float64) (float64, error) {
	if len(x) != len(y) || len(x) == 0 {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}

	meanX, varX := stat.PopMeanVariance(x, nil)
	meanY, varY := stat.PopMeanVariance(y, nil)

	stdX := math.Sqrt(varX)
	stdY := math.Sqrt(varY)
	if stdX < minStdDev*math.Max(1, math.Abs(meanX)) {
		return 0, fmt.Errorf("%w: first series", ErrDegenerateInput)
	}
	if stdY < minStdDev*math.Max(1, math.Abs(meanY)) {
		return 0, fmt.Errorf("%w: second series", ErrDegenerateInput)
	}

	cov := 0.0
	for i := range x {
		cov += (x[i] - meanX) * (y[i] - meanY)
	}
	cov /= float64(len(x))

	return clampCorrelation(cov / (stdX * stdY)), nil
}

// IsDegenerate reports whether x has (numerically) zero variance.
func IsDegenerate(x []float64) bool {
	if len(x) == 0 {
		return true
	}
	mean, variance := stat.PopMeanVariance(x, nil)
	return math.Sqrt(variance) < minStdDev*math.Max(1, math.Abs(mean))
}

// clampCorrelation keeps rounding noise from pushing r outside [-1, 1]
func clampCorrelation(correlation float64) float64 {
	if correlation > 1.0 {
		return 1.0
	}
	if correlation < -1.0 {
		return -1.0
	}
	return correlation
}
