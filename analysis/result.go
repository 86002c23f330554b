package analysis

import (
	"fmt"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
)

// RenderedProgression is a library progression resolved in the estimated key
type RenderedProgression struct {
	Name        string                `json:"name" yaml:"name"`
	Progression tonal.Progression     `json:"progression" yaml:"progression"`
	Chords      []tonal.RenderedChord `json:"chords" yaml:"chords"`
}

// Result is everything known about a clip after Finalize
type Result struct {
	Key         tonal.Key `json:"key" yaml:"key"`
	KeyName     string    `json:"key_name" yaml:"key_name"`
	Correlation float64   `json:"correlation" yaml:"correlation"`

	// Quality metrics
	Clarity   float64 `json:"clarity" yaml:"clarity"`     // (best - second) / best
	Ambiguity float64 `json:"ambiguity" yaml:"ambiguity"` // normalized entropy of scores

	Alternatives []tonal.KeyCandidate `json:"alternatives" yaml:"alternatives"`
	Relations    tonal.KeyRelations   `json:"relations" yaml:"relations"`

	Chords       tonal.ChordTable      `json:"chords" yaml:"chords"`
	Progressions []RenderedProgression `json:"progressions" yaml:"progressions"`

	ObservedNotes []chroma.PitchClass     `json:"observed_notes" yaml:"observed_notes"`
	Profile       chroma.Profile          `json:"profile" yaml:"profile"`
	ProfileName   string                  `json:"key_profile" yaml:"key_profile"`
	Frames        chroma.AccumulatorStats `json:"frames" yaml:"frames"`

	// Set by Analyzer when the result comes from audio
	Source *SourceInfo `json:"source,omitempty" yaml:"source,omitempty"`
}

// SourceInfo describes the audio a result was computed from
type SourceInfo struct {
	Path       string  `json:"path,omitempty" yaml:"path,omitempty"`
	SampleRate int     `json:"sample_rate" yaml:"sample_rate"`
	Duration   float64 `json:"duration" yaml:"duration"` // seconds
	Frames     int     `json:"frames" yaml:"frames"`
}

// Progression returns the rendered progression whose name or degrees match p
func (r *Result) Progression(p tonal.Progression) (RenderedProgression, error) {
	name := p.String()
	for _, rp := range r.Progressions {
		if rp.Name == name {
			return rp, nil
		}
	}

	chords, err := tonal.Render(p, r.Chords)
	if err != nil {
		return RenderedProgression{}, fmt.Errorf("progression %s in %s: %w", name, r.KeyName, err)
	}
	return RenderedProgression{Name: name, Progression: p, Chords: chords}, nil
}

// KeyInfo is the chord-side view of a key without any audio behind it
type KeyInfo struct {
	Key          tonal.Key             `json:"key" yaml:"key"`
	KeyName      string                `json:"key_name" yaml:"key_name"`
	Relations    tonal.KeyRelations    `json:"relations" yaml:"relations"`
	Chords       tonal.ChordTable      `json:"chords" yaml:"chords"`
	Progressions []RenderedProgression `json:"progressions" yaml:"progressions"`
}

// Describe derives the diatonic chords, library progressions and related keys of key
func Describe(key tonal.Key) (*KeyInfo, error) {
	table, err := tonal.ChordsFor(key.Tonic, key.Mode)
	if err != nil {
		return nil, err
	}
	progressions, err := renderProgressions(table)
	if err != nil {
		return nil, err
	}
	return &KeyInfo{
		Key:          key,
		KeyName:      key.Name(),
		Relations:    key.Relations(),
		Chords:       table,
		Progressions: progressions,
	}, nil
}

// KeyInfo returns the chord-side view of the estimated key
func (r *Result) KeyInfo() *KeyInfo {
	return &KeyInfo{
		Key:          r.Key,
		KeyName:      r.KeyName,
		Relations:    r.Relations,
		Chords:       r.Chords,
		Progressions: r.Progressions,
	}
}
