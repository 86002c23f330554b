package spectral

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-tonic/logging"
)

// WindowFunc builds window coefficients of length n (go-dsp's window.Hann signature)
type WindowFunc func(n int) []float64

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft    *FFT
	window WindowFunc
	logger logging.Logger
}

// STFTResult holds the magnitude spectrogram of a signal
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// FrameTime returns the start time in seconds of frame i
func (r *STFTResult) FrameTime(i int) float64 {
	return float64(i) * r.TimeResolution
}

// NewSTFT creates an STFT calculator using a Hann window
func NewSTFT() *STFT {
	return &STFT{
		fft:    NewFFT(),
		window: window.Hann,
		logger: &logging.NoOpLogger{},
	}
}

// WithWindow replaces the analysis window. nil means rectangular.
func (s *STFT) WithWindow(w WindowFunc) *STFT {
	s.window = w
	return s
}

// WithLogger sets the logger used for frame scheduling diagnostics
func (s *STFT) WithLogger(logger logging.Logger) *STFT {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Compute computes the magnitude STFT in parallel. Frames are processed by a
// worker pool and the call returns ctx.Err() if the context is cancelled first.
func (s *STFT) Compute(ctx context.Context, signal []float64, windowSize, hopSize, sampleRate int) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	if len(signal) < windowSize || numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)

	var coeffs []float64
	if s.window != nil {
		coeffs = s.window(windowSize)
	}

	numWorkers := s.getOptimalWorkerCount(numFrames)

	logger := s.logger.WithFields(logging.Fields{
		"component": "stft",
		"function":  "Compute",
	})
	logger.Debug("Starting STFT", logging.Fields{
		"frames":      numFrames,
		"workers":     numWorkers,
		"window_size": windowSize,
		"hop_size":    hopSize,
	})

	jobs := make(chan int)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx * hopSize
				copy(frameBuffer, signal[start:start+windowSize])

				if coeffs != nil {
					floats.Mul(frameBuffer, coeffs)
				}

				magnitude[frameIdx] = s.fft.Magnitudes(frameBuffer)[:freqBins]
			}
		}()
	}

send:
	for frameIdx := range numFrames {
		select {
		case <-ctx.Done():
			break send
		case jobs <- frameIdx:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warn("STFT cancelled", logging.Fields{"error": err.Error()})
		return nil, err
	}

	return &STFTResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// getOptimalWorkerCount determines the number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return max(1, min(numCPU, 8))
	}

	return numCPU
}
