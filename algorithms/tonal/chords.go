package tonal

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
)

// Degree is a Roman-numeral scale-degree label such as "I", "vi" or "vii°".
// Upper case means a major triad, lower case minor, and a trailing "°" diminished.
type Degree string

// DiminishedMarker is the suffix marking a diminished triad
const DiminishedMarker = "°"

// harmonicMinorDominant is the one label a minor table resolves outside its own labels
const harmonicMinorDominant = "V"

var romanNumerals = map[string]int{
	"I": 1, "II": 2, "III": 3, "IV": 4, "V": 5, "VI": 6, "VII": 7,
}

// Base returns the label without the diminished marker
func (d Degree) Base() string {
	return strings.TrimSuffix(strings.TrimSpace(string(d)), DiminishedMarker)
}

// Number returns the scale degree 1-7, ignoring case and the diminished marker
func (d Degree) Number() (int, bool) {
	n, ok := romanNumerals[strings.ToUpper(d.Base())]
	return n, ok
}

// Diminished reports whether the label carries the diminished marker
func (d Degree) Diminished() bool {
	return strings.HasSuffix(strings.TrimSpace(string(d)), DiminishedMarker)
}

// Upper reports whether the numeral is upper case (major quality)
func (d Degree) Upper() bool {
	base := d.Base()
	return base != "" && base == strings.ToUpper(base)
}

// Chord is a scale-degree chord identified by its root
type Chord struct {
	Degree Degree            `json:"degree" yaml:"degree"`
	Root   chroma.PitchClass `json:"root" yaml:"root"`
}

// ChordTable holds the seven diatonic chords of a key in scale order
type ChordTable struct {
	Key    Key      `json:"key" yaml:"key"`
	Chords [7]Chord `json:"chords" yaml:"chords"`
}

type scale struct {
	offsets [7]int
	labels  [7]Degree
}

var scales = map[Mode]scale{
	Major: {
		offsets: [7]int{0, 2, 4, 5, 7, 9, 11},
		labels:  [7]Degree{"I", "ii", "iii", "IV", "V", "vi", "vii°"},
	},
	// natural minor
	Minor: {
		offsets: [7]int{0, 2, 3, 5, 7, 8, 10},
		labels:  [7]Degree{"i", "ii°", "III", "iv", "v", "VI", "VII"},
	},
}

// ChordsFor derives the seven scale-degree chords of tonic in mode
func ChordsFor(tonic chroma.PitchClass, mode Mode) (ChordTable, error) {
	sc, ok := scales[mode]
	if !ok {
		return ChordTable{}, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}

	table := ChordTable{Key: Key{Tonic: tonic.Normalize(), Mode: mode}}
	for i := range sc.offsets {
		table.Chords[i] = Chord{
			Degree: sc.labels[i],
			Root:   tonic.Transpose(sc.offsets[i]),
		}
	}
	return table, nil
}

// Root looks up the root of degree by its label. The diminished marker is
// ignored but the numeral's case must match the table, so "vii" finds
// "vii°" in a major key while "VII" does not. In minor keys "V" is accepted
// as the harmonic-minor dominant on the fifth degree.
func (t ChordTable) Root(degree Degree) (chroma.PitchClass, bool) {
	base := degree.Base()
	if base == "" {
		return 0, false
	}
	for _, c := range t.Chords {
		if c.Degree.Base() == base {
			return c.Root, true
		}
	}
	if t.Key.Mode == Minor && base == harmonicMinorDominant {
		return t.Chords[4].Root, true
	}
	return 0, false
}

// Labels returns the seven degree labels in scale order
func (t ChordTable) Labels() []Degree {
	labels := make([]Degree, len(t.Chords))
	for i, c := range t.Chords {
		labels[i] = c.Degree
	}
	return labels
}
