// Package analysis ties the chroma accumulator, key correlator, key selector and
// chord/progression derivation into a per-clip session.
package analysis

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonic/logging"
)

// DefaultTopN is the number of alternative keys reported with a result
const DefaultTopN = 3

// Options configures a Session
type Options struct {
	EnergyThreshold float64 `json:"energy_threshold" yaml:"energy_threshold" mapstructure:"energy_threshold"`
	Profile         string  `json:"profile" yaml:"profile" mapstructure:"profile"`
	TopN            int     `json:"top_n" yaml:"top_n" mapstructure:"top_n"`
}

// DefaultOptions returns threshold 2.0, the Krumhansl-Schmuckler profile and 3 alternatives
func DefaultOptions() Options {
	return Options{
		EnergyThreshold: chroma.DefaultEnergyThreshold,
		Profile:         tonal.KrumhanslSchmuckler.Name,
		TopN:            DefaultTopN,
	}
}

// Progress is the live feedback emitted for every frame pushed into a session
type Progress struct {
	Percent           float64           `json:"percent"`
	Time              float64           `json:"time"`
	DominantFrequency float64           `json:"dominant_frequency"`
	DominantNote      chroma.PitchClass `json:"dominant_note"`
	Accepted          bool              `json:"accepted"`
}

// ProgressFunc receives per-frame progress. It runs on the caller's goroutine.
type ProgressFunc func(Progress)

// Session is the analysis state of one clip. Create one per clip; a session
// must not be shared between goroutines.
type Session struct {
	accumulator *chroma.Accumulator
	correlator  *tonal.Correlator
	topN        int

	duration float64
	progress ProgressFunc
	logger   logging.Logger
}

// NewSession creates a session with the given options
func NewSession(opts Options) (*Session, error) {
	template, err := tonal.ProfileByName(opts.Profile)
	if err != nil {
		return nil, err
	}

	correlator, err := tonal.NewCorrelator(template)
	if err != nil {
		return nil, err
	}

	if opts.TopN < 1 {
		return nil, fmt.Errorf("%w: top_n %d", tonal.ErrInvalidCount, opts.TopN)
	}

	accumulator, err := chroma.NewAccumulator(opts.EnergyThreshold)
	if err != nil {
		return nil, err
	}

	return &Session{
		accumulator: accumulator,
		correlator:  correlator,
		topN:        opts.TopN,
		logger:      &logging.NoOpLogger{},
	}, nil
}

// WithLogger sets the session logger
func (s *Session) WithLogger(logger logging.Logger) *Session {
	if logger != nil {
		s.logger = logger
		s.correlator.WithLogger(logger)
	}
	return s
}

// WithProgress reports progress against a clip of the given duration in seconds
func (s *Session) WithProgress(duration float64, fn ProgressFunc) *Session {
	s.duration = duration
	s.progress = fn
	return s
}

// Accept pushes one extracted frame. It returns the frame's dominant pitch class
// and whether the frame counted toward the key estimate.
func (s *Session) Accept(frame chroma.Frame) (chroma.PitchClass, bool) {
	dominant, accepted := s.accumulator.Accept(frame.Chroma)
	if !accepted {
		// live readout still shows the loudest note of quiet frames
		dominant = frame.Chroma.Dominant()
	}

	if s.progress != nil {
		s.progress(Progress{
			Percent:           s.percent(frame.Time),
			Time:              frame.Time,
			DominantFrequency: frame.DominantFrequency,
			DominantNote:      dominant,
			Accepted:          accepted,
		})
	}

	return dominant, accepted
}

// AcceptVector pushes a bare chroma vector
func (s *Session) AcceptVector(v chroma.Vector) (chroma.PitchClass, bool) {
	return s.accumulator.Accept(v)
}

// Stats returns accepted/rejected frame counts so far
func (s *Session) Stats() chroma.AccumulatorStats {
	return s.accumulator.Stats()
}

// Reset discards all accumulated frames so the session can start a new clip
func (s *Session) Reset() {
	s.accumulator.Reset()
	s.duration = 0
}

// Finalize estimates the key from the accepted frames and derives its chords
// and progressions.
func (s *Session) Finalize() (*Result, error) {
	logger := s.logger.WithFields(logging.Fields{
		"component": "analysis_session",
		"function":  "Finalize",
	})

	stats := s.accumulator.Stats()

	profile, err := s.accumulator.Finalize()
	if err != nil {
		logger.Warn("No frame passed the energy threshold", logging.Fields{
			"rejected":  stats.Rejected,
			"threshold": stats.Threshold,
		})
		return nil, err
	}

	candidates, err := s.correlator.Correlate(profile)
	if err != nil {
		return nil, err
	}

	observed := s.accumulator.Observed()

	best, err := tonal.Select(candidates, observed)
	if err != nil {
		return nil, err
	}

	alternatives, err := tonal.TopN(candidates, s.topN)
	if err != nil {
		return nil, err
	}

	key := best.Key()
	table, err := tonal.ChordsFor(key.Tonic, key.Mode)
	if err != nil {
		return nil, err
	}

	progressions, err := renderProgressions(table)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Key:           key,
		KeyName:       key.Name(),
		Correlation:   best.Correlation,
		Clarity:       tonal.Clarity(candidates),
		Ambiguity:     tonal.Ambiguity(candidates),
		Alternatives:  alternatives,
		Relations:     key.Relations(),
		Chords:        table,
		Progressions:  progressions,
		ObservedNotes: observed.Members(),
		Profile:       profile,
		ProfileName:   s.correlator.Template().Name,
		Frames:        stats,
	}

	logger.Info("Key estimated", logging.Fields{
		"key":         result.KeyName,
		"correlation": math.Round(best.Correlation*1000) / 1000,
		"accepted":    stats.Accepted,
		"rejected":    stats.Rejected,
	})

	return result, nil
}

func (s *Session) percent(t float64) float64 {
	if s.duration <= 0 {
		return 0
	}
	return math.Min(100, math.Max(0, t/s.duration*100))
}

func renderProgressions(table tonal.ChordTable) ([]RenderedProgression, error) {
	library, err := tonal.ProgressionsFor(table.Key.Mode)
	if err != nil {
		return nil, err
	}

	out := make([]RenderedProgression, len(library))
	for i, p := range library {
		chords, err := tonal.Render(p, table)
		if err != nil {
			return nil, err
		}
		out[i] = RenderedProgression{Name: p.String(), Progression: p, Chords: chords}
	}
	return out, nil
}
