package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp's real FFT
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the full complex spectrum of x.
// go-dsp handles non-power-of-2 sizes, so no padding is applied.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// Magnitudes returns |X[k]| for the positive-frequency half (DC through Nyquist)
func (f *FFT) Magnitudes(x []float64) []float64 {
	spectrum := f.Compute(x)
	if len(spectrum) == 0 {
		return []float64{}
	}

	bins := len(spectrum)/2 + 1
	mags := make([]float64, bins)
	for i := range bins {
		mags[i] = cmplx.Abs(spectrum[i])
	}
	return mags
}

// BinFrequency returns the centre frequency in Hz of bin k for a given FFT size
func BinFrequency(k, fftSize, sampleRate int) float64 {
	if fftSize <= 0 {
		return 0
	}
	return float64(k) * float64(sampleRate) / float64(fftSize)
}
