package chroma

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-tonic/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tonic/algorithms/windowing"
	"github.com/RyanBlaney/sonido-tonic/logging"
)

// ExtractorConfig controls STFT framing and the frequency band folded into chroma
type ExtractorConfig struct {
	WindowSize int     `json:"window_size" yaml:"window_size" mapstructure:"window_size"`
	HopSize    int     `json:"hop_size" yaml:"hop_size" mapstructure:"hop_size"`
	MinFreq    float64 `json:"min_freq" yaml:"min_freq" mapstructure:"min_freq"`
	MaxFreq    float64 `json:"max_freq" yaml:"max_freq" mapstructure:"max_freq"`
	TuningFreq float64 `json:"tuning" yaml:"tuning" mapstructure:"tuning"` // A4 frequency
	Window     string  `json:"window" yaml:"window" mapstructure:"window"`
}

// DefaultExtractorConfig returns a 4096-sample Hann window with 50% overlap,
// an 80 Hz - 8 kHz band and A4 = 440 Hz
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		WindowSize: 4096,
		HopSize:    2048,
		MinFreq:    80.0,   // Approximate E2
		MaxFreq:    8000.0, // High enough for harmonics
		TuningFreq: 440.0,
		Window:     string(windowing.Default),
	}
}

// Validate checks the config for values the extractor cannot work with
func (c ExtractorConfig) Validate() error {
	if c.WindowSize <= 0 || c.HopSize <= 0 {
		return fmt.Errorf("window size and hop size must be positive (got %d, %d)", c.WindowSize, c.HopSize)
	}
	if c.MinFreq < 0 || c.MaxFreq <= c.MinFreq {
		return fmt.Errorf("invalid frequency band %.1f-%.1f Hz", c.MinFreq, c.MaxFreq)
	}
	if c.TuningFreq <= 0 {
		return fmt.Errorf("tuning frequency must be positive")
	}
	if _, err := windowing.ByName(c.Window); err != nil {
		return err
	}
	return nil
}

// Frame is one chroma observation plus the readouts shown while analysing
type Frame struct {
	Chroma            Vector  `json:"chroma"`
	DominantFrequency float64 `json:"dominant_frequency"` // Hz of the strongest in-band FFT bin
	Time              float64 `json:"time"`               // frame start in seconds
}

// Extractor turns PCM into max-normalized chroma frames.
//
// Each FFT bin in [MinFreq, MaxFreq] is mapped to the nearest equal-tempered
// semitone and its magnitude added to that pitch class. The frame is then
// scaled so its largest bin is 1, which puts a full triad at an energy of
// roughly 3 and silence at 0.
type Extractor struct {
	sampleRate int
	config     ExtractorConfig
	stft       *spectral.STFT
	logger     logging.Logger
}

// NewExtractor creates an extractor for audio at sampleRate
func NewExtractor(sampleRate int, config ExtractorConfig) (*Extractor, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	window, err := windowing.ByName(config.Window)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		sampleRate: sampleRate,
		config:     config,
		stft:       spectral.NewSTFT().WithWindow(window),
		logger:     &logging.NoOpLogger{},
	}, nil
}

// WithLogger sets the logger for the extractor and its STFT
func (e *Extractor) WithLogger(logger logging.Logger) *Extractor {
	if logger != nil {
		e.logger = logger
		e.stft.WithLogger(logger)
	}
	return e
}

// Extract computes one Frame per STFT window of the mono signal pcm
func (e *Extractor) Extract(ctx context.Context, pcm []float64) ([]Frame, error) {
	logger := e.logger.WithFields(logging.Fields{
		"component": "chroma_extractor",
		"function":  "Extract",
	})

	stftResult, err := e.stft.Compute(ctx, pcm, e.config.WindowSize, e.config.HopSize, e.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("stft: %w", err)
	}

	mapping := e.chromaMapping(stftResult.FreqBins, stftResult.FreqResolution)

	frames := make([]Frame, stftResult.TimeFrames)
	for t, spectrum := range stftResult.Magnitude {
		var v Vector
		peakBin := -1
		for f, magnitude := range spectrum {
			bin := mapping[f]
			if bin < 0 {
				continue
			}
			v[bin] += magnitude
			if peakBin < 0 || magnitude > spectrum[peakBin] {
				peakBin = f
			}
		}

		frames[t] = Frame{
			Chroma: normalizeMax(v),
			Time:   stftResult.FrameTime(t),
		}
		if peakBin >= 0 && spectrum[peakBin] > 0 {
			frames[t].DominantFrequency = float64(peakBin) * stftResult.FreqResolution
		}
	}

	logger.Debug("Extracted chroma frames", logging.Fields{
		"frames":      len(frames),
		"sample_rate": e.sampleRate,
	})

	return frames, nil
}

// chromaMapping maps FFT bins to chroma bins, -1 for bins outside the band
func (e *Extractor) chromaMapping(freqBins int, freqResolution float64) []int {
	mapping := make([]int, freqBins)

	for f := range freqBins {
		frequency := float64(f) * freqResolution

		if frequency <= 0 || frequency < e.config.MinFreq || frequency > e.config.MaxFreq {
			mapping[f] = -1
			continue
		}

		midiNote := int(math.Round(FrequencyToMIDI(frequency, e.config.TuningFreq)))
		mapping[f] = int(PitchClass(midiNote).Normalize())
	}

	return mapping
}

// FrequencyToMIDI converts a frequency to a (fractional) MIDI note number,
// with tuning as the frequency of A4 (MIDI 69)
func FrequencyToMIDI(frequency, tuning float64) float64 {
	if frequency <= 0 || tuning <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(frequency/tuning)
}

// normalizeMax scales v so its largest component is 1
func normalizeMax(v Vector) Vector {
	return Vector(Profile(v).Normalized())
}
