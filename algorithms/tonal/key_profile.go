package tonal

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
)

// ErrInvalidMode is returned for a Mode value other than Major or Minor
var ErrInvalidMode = errors.New("invalid mode")

// Mode represents major or minor mode
type Mode int

const (
	Major Mode = iota
	Minor
)

// Modes lists the supported modes in tie-break order
var Modes = [...]Mode{Major, Minor}

// Valid reports whether m is Major or Minor
func (m Mode) Valid() bool {
	return m == Major || m == Minor
}

func (m Mode) String() string {
	switch m {
	case Major:
		return "major"
	case Minor:
		return "minor"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText encodes the mode as "major" or "minor"
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts anything ParseMode accepts
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode parses "major"/"maj"/"M" and "minor"/"min"/"m"
func ParseMode(s string) (Mode, error) {
	switch strings.TrimSpace(s) {
	case "M", "maj", "Maj", "major", "Major", "MAJOR":
		return Major, nil
	case "m", "min", "Min", "minor", "Minor", "MINOR":
		return Minor, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Key is a tonic together with a mode
type Key struct {
	Tonic chroma.PitchClass `json:"tonic" yaml:"tonic"`
	Mode  Mode              `json:"mode" yaml:"mode"`
}

// Name returns the human-readable key name, e.g. "C major"
func (k Key) Name() string {
	return k.Tonic.String() + " " + k.Mode.String()
}

func (k Key) String() string {
	return k.Name()
}

// ParseKey parses key names such as "C major", "a minor", "F#m", "Bb" or "Eb:min".
// A bare note name means major.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("empty key name")
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ':' || r == '_' || r == '-'
	})

	var note, mode string
	switch len(fields) {
	case 1:
		note = fields[0]
		// compact forms: "Am", "F#m", "Ebmin", "Cmaj"
		for _, suffix := range []string{"major", "minor", "maj", "min", "m", "M"} {
			if len(note) > len(suffix) && strings.HasSuffix(note, suffix) {
				note, mode = strings.TrimSuffix(note, suffix), suffix
				break
			}
		}
	case 2:
		note, mode = fields[0], fields[1]
	default:
		return Key{}, fmt.Errorf("unrecognised key name %q", s)
	}

	tonic, err := chroma.ParsePitchClass(note)
	if err != nil {
		return Key{}, fmt.Errorf("key %q: %w", s, err)
	}

	m := Major
	if mode != "" {
		m, err = ParseMode(mode)
		if err != nil {
			return Key{}, fmt.Errorf("key %q: %w", s, err)
		}
	}

	return Key{Tonic: tonic, Mode: m}, nil
}

// KeyProfileTemplate holds the major and minor reference vectors of one profile
// family. Index 0 of each vector is the tonic.
type KeyProfileTemplate struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	MajorProfile []float64 `json:"major_profile"`
	MinorProfile []float64 `json:"minor_profile"`
}

// Reference returns the template vector for mode
func (t KeyProfileTemplate) Reference(mode Mode) ([]float64, error) {
	switch mode {
	case Major:
		return t.MajorProfile, nil
	case Minor:
		return t.MinorProfile, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
}

// Krumhansl-Schmuckler profiles (empirically derived). This is the default.
var KrumhanslSchmuckler = KeyProfileTemplate{
	Name:         "krumhansl",
	Description:  "Krumhansl-Schmuckler probe-tone ratings",
	MajorProfile: []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88},
	MinorProfile: []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17},
}

// Temperley profiles (corpus-based)
var Temperley = KeyProfileTemplate{
	Name:         "temperley",
	Description:  "Statistical profiles from musical corpora",
	MajorProfile: []float64{5.0, 2.0, 3.5, 2.0, 4.5, 4.0, 2.0, 4.5, 2.0, 3.5, 1.5, 4.0},
	MinorProfile: []float64{5.0, 2.0, 3.5, 4.5, 2.0, 4.0, 2.0, 4.5, 3.5, 2.0, 1.5, 4.0},
}

var profiles = map[string]KeyProfileTemplate{
	KrumhanslSchmuckler.Name: KrumhanslSchmuckler,
	Temperley.Name:           Temperley,
}

// ProfileByName looks up a template by its config name. "" selects the default.
func ProfileByName(name string) (KeyProfileTemplate, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return KrumhanslSchmuckler, nil
	}
	t, ok := profiles[name]
	if !ok {
		return KeyProfileTemplate{}, fmt.Errorf("unknown key profile %q (supported: %s)",
			name, strings.Join(SupportedProfiles(), ", "))
	}
	return t, nil
}

// SupportedProfiles returns the template names accepted by ProfileByName
func SupportedProfiles() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Rotate shifts v cyclically so that v[i] lands at index (i+r) mod n.
// Rotating a reference vector by a tonic puts its tonic weight on that pitch class.
func Rotate(v []float64, r int) []float64 {
	n := len(v)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	r = ((r % n) + n) % n
	for i, x := range v {
		out[(i+r)%n] = x
	}
	return out
}
