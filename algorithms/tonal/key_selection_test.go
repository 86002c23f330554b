package tonal_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
)

func TestSelect_EndToEndCMajor(t *testing.T) {
	t.Parallel()

	acc, err := chroma.NewAccumulator(chroma.DefaultEnergyThreshold)
	require.NoError(t, err)
	frame := chroma.FromSlice(tonal.KrumhanslSchmuckler.MajorProfile)
	for range 10 {
		_, ok := acc.Accept(frame)
		require.True(t, ok)
	}

	profile, err := acc.Finalize()
	require.NoError(t, err)

	candidates, err := tonal.NewDefaultCorrelator().Correlate(profile)
	require.NoError(t, err)

	best, err := tonal.Select(candidates, acc.Observed())
	require.NoError(t, err)
	assert.Equal(t, chroma.C, best.Tonic)
	assert.Equal(t, tonal.Major, best.Mode)
	assert.InDelta(t, 1.0, best.Correlation, 1e-9)

	table, err := tonal.ChordsFor(best.Tonic, best.Mode)
	require.NoError(t, err)

	rendered, err := tonal.Render(tonal.Progression{"I", "V", "vi", "IV"}, table)
	require.NoError(t, err)
	assert.Equal(t, []tonal.RenderedChord{
		{Degree: "I", Root: chroma.C},
		{Degree: "V", Root: chroma.G},
		{Degree: "vi", Root: chroma.A},
		{Degree: "IV", Root: chroma.F},
	}, rendered)
}

func TestSelect_EqualCorrelationPrefersObservedTonic(t *testing.T) {
	t.Parallel()

	candidates := []tonal.KeyCandidate{
		{Tonic: chroma.C, Mode: tonal.Major, Correlation: 0.8},
		{Tonic: chroma.G, Mode: tonal.Major, Correlation: 0.8},
	}

	best, err := tonal.Select(candidates, chroma.NewObservedNoteSet(chroma.G))
	require.NoError(t, err)
	assert.Equal(t, chroma.G, best.Tonic)
}

func TestSelect_ObservedTonicBeatsHigherCorrelation(t *testing.T) {
	t.Parallel()

	candidates := []tonal.KeyCandidate{
		{Tonic: chroma.C, Mode: tonal.Major, Correlation: 0.9},
		{Tonic: chroma.A, Mode: tonal.Minor, Correlation: 0.7},
		{Tonic: chroma.E, Mode: tonal.Minor, Correlation: 0.6},
	}

	best, err := tonal.Select(candidates, chroma.NewObservedNoteSet(chroma.A, chroma.E))
	require.NoError(t, err)
	assert.Equal(t, tonal.Key{Tonic: chroma.A, Mode: tonal.Minor}, best.Key())

	// nothing observed: global best
	best, err = tonal.Select(candidates, chroma.ObservedNoteSet{})
	require.NoError(t, err)
	assert.Equal(t, tonal.Key{Tonic: chroma.C, Mode: tonal.Major}, best.Key())
}

func TestSelect_TieBreakLowerTonicThenMajor(t *testing.T) {
	t.Parallel()

	candidates := []tonal.KeyCandidate{
		{Tonic: chroma.D, Mode: tonal.Minor, Correlation: 0.5},
		{Tonic: chroma.D, Mode: tonal.Major, Correlation: 0.5},
		{Tonic: chroma.F, Mode: tonal.Major, Correlation: 0.5},
	}

	best, err := tonal.Select(candidates, chroma.ObservedNoteSet{})
	require.NoError(t, err)
	assert.Equal(t, tonal.Key{Tonic: chroma.D, Mode: tonal.Major}, best.Key())

	ranked := tonal.Rank(candidates, nil)
	require.Len(t, ranked, 3)
	assert.Equal(t, tonal.Key{Tonic: chroma.D, Mode: tonal.Minor}, ranked[1].Key())
	assert.Equal(t, tonal.Key{Tonic: chroma.F, Mode: tonal.Major}, ranked[2].Key())
}

func TestSelect_NoKey(t *testing.T) {
	t.Parallel()

	_, err := tonal.Select(nil, chroma.ObservedNoteSet{})
	require.ErrorIs(t, err, tonal.ErrNoKey)

	_, err = tonal.Select([]tonal.KeyCandidate{
		{Tonic: chroma.C, Mode: tonal.Major, Correlation: math.NaN()},
	}, chroma.NewObservedNoteSet(chroma.C))
	require.ErrorIs(t, err, tonal.ErrNoKey)
}

func TestSelect_SkipsUndefinedCorrelations(t *testing.T) {
	t.Parallel()

	best, err := tonal.Select([]tonal.KeyCandidate{
		{Tonic: chroma.C, Mode: tonal.Major, Correlation: math.NaN()},
		{Tonic: chroma.D, Mode: tonal.Minor, Correlation: -0.2},
	}, chroma.NewObservedNoteSet(chroma.C))
	require.NoError(t, err)
	assert.Equal(t, chroma.D, best.Tonic)
}

func TestTopN(t *testing.T) {
	t.Parallel()

	candidates := []tonal.KeyCandidate{
		{Tonic: chroma.A, Mode: tonal.Minor, Correlation: 0.7},
		{Tonic: chroma.C, Mode: tonal.Major, Correlation: 0.9},
		{Tonic: chroma.E, Mode: tonal.Minor, Correlation: 0.6},
		{Tonic: chroma.G, Mode: tonal.Major, Correlation: math.NaN()},
	}

	top, err := tonal.TopN(candidates, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, chroma.C, top[0].Tonic)
	assert.Equal(t, chroma.A, top[1].Tonic)

	top, err = tonal.TopN(candidates, 10)
	require.NoError(t, err)
	assert.Len(t, top, 3)

	_, err = tonal.TopN(candidates, 0)
	require.ErrorIs(t, err, tonal.ErrInvalidCount)

	_, err = tonal.TopN(nil, 3)
	require.ErrorIs(t, err, tonal.ErrNoKey)
}
