package chroma_test

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
)

const testSampleRate = 44100

func tone(seconds float64, freqs ...float64) []float64 {
	n := int(seconds * testSampleRate)
	out := make([]float64, n)
	for i := range out {
		for _, f := range freqs {
			out[i] += math.Sin(2 * math.Pi * f * float64(i) / testSampleRate)
		}
	}
	return out
}

func topBins(v chroma.Vector, n int) []int {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] > v[idx[b]] })
	top := idx[:n]
	sort.Ints(top)
	return top
}

func TestExtractor_SingleTone(t *testing.T) {
	t.Parallel()

	ext, err := chroma.NewExtractor(testSampleRate, chroma.DefaultExtractorConfig())
	require.NoError(t, err)

	frames, err := ext.Extract(context.Background(), tone(0.5, 440))
	require.NoError(t, err)
	require.NotEmpty(t, frames)

	for _, f := range frames {
		assert.Equal(t, chroma.A, f.Chroma.Dominant())
		assert.InDelta(t, 1.0, f.Chroma[chroma.A], 1e-12)
		assert.InDelta(t, 440.0, f.DominantFrequency, 11.0)
	}
	assert.InDelta(t, 2048.0/testSampleRate, frames[1].Time, 1e-12)
}

func TestExtractor_MajorTriad(t *testing.T) {
	t.Parallel()

	ext, err := chroma.NewExtractor(testSampleRate, chroma.DefaultExtractorConfig())
	require.NoError(t, err)

	// C4, E4, G4
	frames, err := ext.Extract(context.Background(), tone(0.5, 261.63, 329.63, 392.00))
	require.NoError(t, err)

	for _, f := range frames {
		assert.Equal(t, []int{int(chroma.C), int(chroma.E), int(chroma.G)}, topBins(f.Chroma, 3))
		assert.GreaterOrEqual(t, f.Chroma.Energy(), chroma.DefaultEnergyThreshold)
	}
}

func TestExtractor_SilenceHasNoEnergy(t *testing.T) {
	t.Parallel()

	ext, err := chroma.NewExtractor(testSampleRate, chroma.DefaultExtractorConfig())
	require.NoError(t, err)

	frames, err := ext.Extract(context.Background(), make([]float64, testSampleRate/2))
	require.NoError(t, err)

	acc := newAccumulator(t, chroma.DefaultEnergyThreshold)
	for _, f := range frames {
		assert.Zero(t, f.Chroma.Energy())
		assert.Zero(t, f.DominantFrequency)
		_, ok := acc.Accept(f.Chroma)
		assert.False(t, ok)
	}
}

func TestExtractorConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, chroma.DefaultExtractorConfig().Validate())

	bad := chroma.DefaultExtractorConfig()
	bad.HopSize = 0
	require.Error(t, bad.Validate())

	bad = chroma.DefaultExtractorConfig()
	bad.MaxFreq = bad.MinFreq
	require.Error(t, bad.Validate())

	bad = chroma.DefaultExtractorConfig()
	bad.TuningFreq = 0
	require.Error(t, bad.Validate())

	bad = chroma.DefaultExtractorConfig()
	bad.Window = "triangle"
	require.Error(t, bad.Validate())

	// an unset window means Hann
	unset := chroma.DefaultExtractorConfig()
	unset.Window = ""
	require.NoError(t, unset.Validate())

	_, err := chroma.NewExtractor(0, chroma.DefaultExtractorConfig())
	require.Error(t, err)
}

func TestFrequencyToMIDI(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 69.0, chroma.FrequencyToMIDI(440, 440), 1e-12)
	assert.InDelta(t, 60.0, chroma.FrequencyToMIDI(261.6256, 440), 1e-4)
	assert.Zero(t, chroma.FrequencyToMIDI(0, 440))
}
