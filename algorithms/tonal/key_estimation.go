package tonal

import (
	"fmt"
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/algorithms/stats"
	"github.com/RyanBlaney/sonido-tonic/logging"
)

// KeyCandidate is one of the 24 key hypotheses scored against a profile
type KeyCandidate struct {
	Tonic       chroma.PitchClass `json:"tonic" yaml:"tonic"`
	Mode        Mode              `json:"mode" yaml:"mode"`
	Correlation float64           `json:"correlation" yaml:"correlation"`
}

// Key returns the candidate's tonic and mode
func (c KeyCandidate) Key() Key {
	return Key{Tonic: c.Tonic, Mode: c.Mode}
}

// Name returns the human-readable key name
func (c KeyCandidate) Name() string {
	return c.Key().Name()
}

// Defined reports whether the candidate carries a usable correlation
func (c KeyCandidate) Defined() bool {
	return !math.IsNaN(c.Correlation) && c.Mode.Valid()
}

// Correlator scores a chroma profile against every rotation of a key profile template
type Correlator struct {
	template KeyProfileTemplate
	rotated  map[Mode][][]float64 // [mode][tonic] -> rotated reference
	logger   logging.Logger
}

// NewCorrelator creates a correlator for template. Both of its vectors must have
// 12 entries.
func NewCorrelator(template KeyProfileTemplate) (*Correlator, error) {
	c := &Correlator{
		template: template,
		rotated:  make(map[Mode][][]float64, len(Modes)),
		logger:   &logging.NoOpLogger{},
	}

	for _, mode := range Modes {
		ref, err := template.Reference(mode)
		if err != nil {
			return nil, err
		}
		if len(ref) != chroma.NumPitchClasses {
			return nil, fmt.Errorf("profile %q %s: expected %d values, got %d",
				template.Name, mode, chroma.NumPitchClasses, len(ref))
		}

		rotations := make([][]float64, chroma.NumPitchClasses)
		for tonic := range chroma.NumPitchClasses {
			rotations[tonic] = Rotate(ref, tonic)
		}
		c.rotated[mode] = rotations
	}

	return c, nil
}

// NewDefaultCorrelator uses the Krumhansl-Schmuckler profiles
func NewDefaultCorrelator() *Correlator {
	c, err := NewCorrelator(KrumhanslSchmuckler)
	if err != nil {
		panic(err)
	}
	return c
}

// WithLogger sets the correlator's logger
func (c *Correlator) WithLogger(logger logging.Logger) *Correlator {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Template returns the key profile template in use
func (c *Correlator) Template() KeyProfileTemplate {
	return c.template
}

// Correlate returns all 24 key candidates for profile, ordered by tonic then mode.
// A zero-variance profile fails with stats.ErrDegenerateInput.
func (c *Correlator) Correlate(profile chroma.Profile) ([]KeyCandidate, error) {
	input := profile.Slice()
	if stats.IsDegenerate(input) {
		return nil, fmt.Errorf("correlate: %w", stats.ErrDegenerateInput)
	}

	candidates := make([]KeyCandidate, 0, len(Modes)*chroma.NumPitchClasses)
	for tonic := range chroma.NumPitchClasses {
		for _, mode := range Modes {
			r, err := stats.Pearson(c.rotated[mode][tonic], input)
			if err != nil {
				return nil, fmt.Errorf("correlate %s %s: %w", chroma.PitchClass(tonic), mode, err)
			}
			candidates = append(candidates, KeyCandidate{
				Tonic:       chroma.PitchClass(tonic),
				Mode:        mode,
				Correlation: r,
			})
		}
	}

	c.logger.Debug("Correlated key profiles", logging.Fields{
		"component":  "key_correlator",
		"function":   "Correlate",
		"profile":    c.template.Name,
		"candidates": len(candidates),
	})

	return candidates, nil
}

// Clarity is (best - second) / best over the candidates' correlations.
// It is 0 when there are fewer than two candidates or the best is not positive.
func Clarity(candidates []KeyCandidate) float64 {
	scores := correlations(candidates)
	if len(scores) < 2 {
		return 0.0
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	if scores[0] > 0 {
		return (scores[0] - scores[1]) / scores[0]
	}
	return 0.0
}

// Ambiguity is the normalized entropy of the positive correlations: 0 when one
// key stands alone, 1 when all keys score the same.
func Ambiguity(candidates []KeyCandidate) float64 {
	return stats.NormalizedEntropy(correlations(candidates))
}

func correlations(candidates []KeyCandidate) []float64 {
	scores := make([]float64, 0, len(candidates))
	for _, c := range candidates {
		if c.Defined() {
			scores = append(scores, c.Correlation)
		}
	}
	return scores
}
