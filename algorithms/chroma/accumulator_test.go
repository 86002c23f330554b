package chroma_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
)

func newAccumulator(t *testing.T, threshold float64) *chroma.Accumulator {
	t.Helper()

	acc, err := chroma.NewAccumulator(threshold)
	require.NoError(t, err)
	return acc
}

func TestAccumulator_FinalizeWithoutFrames(t *testing.T) {
	t.Parallel()

	acc := newAccumulator(t, chroma.DefaultEnergyThreshold)

	_, err := acc.Finalize()
	require.ErrorIs(t, err, chroma.ErrInsufficientData)
}

func TestAccumulator_AllBelowThreshold(t *testing.T) {
	t.Parallel()

	acc := newAccumulator(t, 2.0)

	for range 5 {
		_, ok := acc.Accept(chroma.Vector{0: 1.0, 4: 0.5})
		assert.False(t, ok)
	}

	_, err := acc.Finalize()
	require.ErrorIs(t, err, chroma.ErrInsufficientData)
	assert.Equal(t, chroma.AccumulatorStats{Accepted: 0, Rejected: 5, Threshold: 2.0}, acc.Stats())
	assert.Zero(t, acc.Observed().Len())
}

func TestAccumulator_MeanOfAcceptedFrames(t *testing.T) {
	t.Parallel()

	acc := newAccumulator(t, 2.0)

	dominant, ok := acc.Accept(chroma.Vector{0: 1.0, 4: 0.8, 7: 0.6})
	require.True(t, ok)
	assert.Equal(t, chroma.C, dominant)

	// below threshold, ignored
	_, ok = acc.Accept(chroma.Vector{2: 1.0})
	require.False(t, ok)

	dominant, ok = acc.Accept(chroma.Vector{0: 0.2, 7: 1.0, 11: 0.9})
	require.True(t, ok)
	assert.Equal(t, chroma.G, dominant)

	profile, err := acc.Finalize()
	require.NoError(t, err)

	assert.InDelta(t, 0.6, profile[chroma.C], 1e-12)
	assert.InDelta(t, 0.4, profile[chroma.E], 1e-12)
	assert.InDelta(t, 0.8, profile[chroma.G], 1e-12)
	assert.InDelta(t, 0.45, profile[chroma.B], 1e-12)
	assert.Zero(t, profile[chroma.D])

	assert.Equal(t, []chroma.PitchClass{chroma.C, chroma.G}, acc.Observed().Members())
	assert.Equal(t, []string{"C", "G"}, acc.ObservedNames())
}

func TestAccumulator_ThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	acc := newAccumulator(t, 2.0)

	_, ok := acc.Accept(chroma.Vector{0: 1.0, 1: 1.0})
	assert.True(t, ok)
}

func TestAccumulator_DominantTieGoesToLowestIndex(t *testing.T) {
	t.Parallel()

	acc := newAccumulator(t, 2.0)

	dominant, ok := acc.Accept(chroma.Vector{3: 1.0, 9: 1.0, 10: 0.5})
	require.True(t, ok)
	assert.Equal(t, chroma.DSharp, dominant)
}

func TestAccumulator_RejectsInvalidFrames(t *testing.T) {
	t.Parallel()

	acc := newAccumulator(t, 2.0)

	for _, frame := range []chroma.Vector{
		{0: math.NaN(), 1: 3.0},
		{0: math.Inf(1)},
		{0: 3.0, 1: -0.5},
	} {
		_, ok := acc.Accept(frame)
		assert.False(t, ok)
	}

	assert.Equal(t, 3, acc.Stats().Rejected)
	_, err := acc.Finalize()
	require.ErrorIs(t, err, chroma.ErrInsufficientData)
}

func TestAccumulator_Reset(t *testing.T) {
	t.Parallel()

	acc := newAccumulator(t, 1.5)
	_, ok := acc.Accept(chroma.Vector{5: 2.0})
	require.True(t, ok)

	acc.Reset()

	assert.Equal(t, chroma.AccumulatorStats{Threshold: 1.5}, acc.Stats())
	assert.Zero(t, acc.Observed().Len())
	_, err := acc.Finalize()
	require.ErrorIs(t, err, chroma.ErrInsufficientData)
}

func TestNewAccumulator_Threshold(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 3.0, newAccumulator(t, 3).Threshold(), 0)

	for _, threshold := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		acc, err := chroma.NewAccumulator(threshold)
		require.ErrorIs(t, err, chroma.ErrInvalidThreshold, "threshold %v", threshold)
		assert.Nil(t, acc)
	}
}

func TestAccumulator_ObservedIsAValue(t *testing.T) {
	t.Parallel()

	acc := newAccumulator(t, 1.0)
	_, ok := acc.Accept(chroma.Vector{9: 1.0, 0: 0.5})
	require.True(t, ok)

	observed := acc.Observed()
	observed.Add(chroma.E)

	assert.True(t, acc.Observed().Contains(chroma.A))
	assert.False(t, acc.Observed().Contains(chroma.E))
	assert.Equal(t, 1, acc.Observed().Len())
}

func TestObservedNoteSet(t *testing.T) {
	t.Parallel()

	set := chroma.NewObservedNoteSet(chroma.A, chroma.C, chroma.PitchClass(21))

	assert.True(t, set.Contains(chroma.A))
	assert.True(t, set.Contains(chroma.C))
	assert.False(t, set.Contains(chroma.E))
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []chroma.PitchClass{chroma.C, chroma.A}, set.Members())
}
