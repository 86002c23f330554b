package chroma

import (
	"fmt"
	"strings"
)

// NumPitchClasses is the number of chroma bins (one per semitone in the octave)
const NumPitchClasses = 12

// PitchClass is a semitone index 0-11 starting at C. Arithmetic on it is mod 12.
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

var pitchClassNames = [NumPitchClasses]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// flat spellings accepted by ParsePitchClass
var flatNames = map[string]PitchClass{
	"Cb": B,
	"Db": CSharp,
	"Eb": DSharp,
	"Fb": E,
	"Gb": FSharp,
	"Ab": GSharp,
	"Bb": ASharp,
}

// Names returns the 12 note names in semitone order starting at C
func Names() []string {
	names := make([]string, NumPitchClasses)
	copy(names, pitchClassNames[:])
	return names
}

// Normalize folds any integer into the 0-11 range
func (pc PitchClass) Normalize() PitchClass {
	v := int(pc) % NumPitchClasses
	if v < 0 {
		v += NumPitchClasses
	}
	return PitchClass(v)
}

// Transpose moves the pitch class by the given number of semitones (either direction)
func (pc PitchClass) Transpose(semitones int) PitchClass {
	return PitchClass(int(pc) + semitones).Normalize()
}

// Interval returns the upward distance in semitones from pc to other (0-11)
func (pc PitchClass) Interval(other PitchClass) int {
	return int(other.Normalize()-pc.Normalize()+NumPitchClasses) % NumPitchClasses
}

func (pc PitchClass) String() string {
	return pitchClassNames[pc.Normalize()]
}

// MarshalText encodes the pitch class as its note name
func (pc PitchClass) MarshalText() ([]byte, error) {
	return []byte(pc.String()), nil
}

// UnmarshalText accepts anything ParsePitchClass accepts
func (pc *PitchClass) UnmarshalText(text []byte) error {
	parsed, err := ParsePitchClass(string(text))
	if err != nil {
		return err
	}
	*pc = parsed
	return nil
}

// ParsePitchClass parses a note name such as "C", "f#", "Bb" or "E♭"
func ParsePitchClass(name string) (PitchClass, error) {
	s := strings.TrimSpace(name)
	s = strings.NewReplacer("♯", "#", "♭", "b").Replace(s)
	if s == "" {
		return 0, fmt.Errorf("empty note name")
	}

	// Letter is case-insensitive, accidental is not ("b" means flat)
	s = strings.ToUpper(s[:1]) + s[1:]

	for i, n := range pitchClassNames {
		if n == s {
			return PitchClass(i), nil
		}
	}
	if pc, ok := flatNames[s]; ok {
		return pc, nil
	}

	// E# and B# wrap onto naturals
	switch s {
	case "E#":
		return F, nil
	case "B#":
		return C, nil
	}

	return 0, fmt.Errorf("unknown note name %q", name)
}
