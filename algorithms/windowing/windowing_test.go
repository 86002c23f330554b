package windowing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonic/algorithms/windowing"
)

func TestByName(t *testing.T) {
	t.Parallel()

	for _, name := range windowing.Names() {
		fn, err := windowing.ByName(name)
		require.NoError(t, err, name)
		assert.Len(t, fn(64), 64, name)
	}

	hann, err := windowing.ByName("")
	require.NoError(t, err)
	coeffs := hann(9)
	assert.InDelta(t, 0.0, coeffs[0], 1e-12)
	assert.InDelta(t, 1.0, coeffs[4], 1e-12)

	alias, err := windowing.ByName("Hanning")
	require.NoError(t, err)
	assert.Equal(t, coeffs, alias(9))

	rect, err := windowing.ByName("rectangular")
	require.NoError(t, err)
	for _, c := range rect(8) {
		assert.InDelta(t, 1.0, c, 1e-12)
	}

	assert.Equal(t, []string{"bartlett", "blackman", "flattop", "hamming", "hann", "rectangular"}, windowing.Names())

	bartlett, err := windowing.ByName("bartlett")
	require.NoError(t, err)
	tri := bartlett(5)
	assert.InDelta(t, 0.0, tri[0], 1e-12)
	assert.InDelta(t, 0.5, tri[1], 1e-12)
	assert.InDelta(t, 1.0, tri[2], 1e-12)

	_, err = windowing.ByName("triangle")
	require.Error(t, err)
}
