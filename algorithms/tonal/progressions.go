package tonal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
)

// ErrInternalConsistency is returned when a progression names a degree that the
// chord table does not contain. It indicates a library or table bug.
var ErrInternalConsistency = errors.New("internal consistency error")

// Progression is an ordered list of scale degrees
type Progression []Degree

func (p Progression) String() string {
	parts := make([]string, len(p))
	for i, d := range p {
		parts[i] = string(d)
	}
	return strings.Join(parts, "-")
}

// ParseProgression parses "I-V-vi-IV" or "I V vi IV"
func ParseProgression(s string) (Progression, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty progression")
	}

	p := make(Progression, len(fields))
	for i, f := range fields {
		d := Degree(f)
		if _, ok := d.Number(); !ok {
			return nil, fmt.Errorf("progression %q: unknown degree %q", s, f)
		}
		p[i] = d
	}
	return p, nil
}

// RenderedChord is a progression step resolved to a root note
type RenderedChord struct {
	Degree Degree            `json:"degree" yaml:"degree"`
	Root   chroma.PitchClass `json:"root" yaml:"root"`
}

func (r RenderedChord) String() string {
	return fmt.Sprintf("%s (%s)", r.Degree, r.Root)
}

var progressionLibrary = map[Mode][]Progression{
	Major: {
		{"I", "V", "vi", "IV"},
		{"I", "IV", "V", "IV"},
		{"vi", "IV", "I", "V"},
		{"I", "vi", "IV", "V"},
	},
	// [i VII VI V] borrows the harmonic-minor dominant; V renders on the fifth degree
	Minor: {
		{"i", "iv", "v", "i"},
		{"i", "VI", "III", "VII"},
		{"i", "VII", "VI", "V"},
		{"i", "iv", "VII", "III"},
	},
}

// ProgressionsFor returns the canned progressions for mode
func ProgressionsFor(mode Mode) ([]Progression, error) {
	lib, ok := progressionLibrary[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}

	out := make([]Progression, len(lib))
	for i, p := range lib {
		out[i] = append(Progression(nil), p...)
	}
	return out, nil
}

// Render resolves every degree of progression to its root in table. Labels keep
// the progression's spelling.
func Render(progression Progression, table ChordTable) ([]RenderedChord, error) {
	rendered := make([]RenderedChord, len(progression))
	for i, degree := range progression {
		root, ok := table.Root(degree)
		if !ok {
			return nil, fmt.Errorf("%w: degree %q not in %s chord table",
				ErrInternalConsistency, degree, table.Key.Name())
		}
		rendered[i] = RenderedChord{Degree: degree, Root: root}
	}
	return rendered, nil
}

// RenderAll renders every library progression for the table's key
func RenderAll(table ChordTable) ([][]RenderedChord, error) {
	progressions, err := ProgressionsFor(table.Key.Mode)
	if err != nil {
		return nil, err
	}

	out := make([][]RenderedChord, len(progressions))
	for i, p := range progressions {
		out[i], err = Render(p, table)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
