// Package midiexport renders chord progressions as Standard MIDI Files.
package midiexport

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
)

// TicksPerQuarter is the SMF time resolution
const TicksPerQuarter = 960

// ErrEmptyProgression is returned when there is nothing to write
var ErrEmptyProgression = errors.New("empty progression")

// Quality is a triad quality
type Quality int

const (
	MajorTriad Quality = iota
	MinorTriad
	DiminishedTriad
)

func (q Quality) String() string {
	switch q {
	case MajorTriad:
		return "major"
	case MinorTriad:
		return "minor"
	case DiminishedTriad:
		return "diminished"
	default:
		return fmt.Sprintf("Quality(%d)", int(q))
	}
}

// Intervals returns the semitone offsets of the triad above its root
func (q Quality) Intervals() []int {
	switch q {
	case MinorTriad:
		return []int{0, 3, 7}
	case DiminishedTriad:
		return []int{0, 3, 6}
	default:
		return []int{0, 4, 7}
	}
}

// QualityOf reads the triad quality from a degree label: "°" is diminished,
// upper case major, lower case minor
func QualityOf(d tonal.Degree) Quality {
	switch {
	case d.Diminished():
		return DiminishedTriad
	case d.Upper():
		return MajorTriad
	default:
		return MinorTriad
	}
}

// Options controls tempo, register and note timing
type Options struct {
	BPM           float64 `json:"bpm" yaml:"bpm" mapstructure:"bpm"`
	Octave        int     `json:"octave" yaml:"octave" mapstructure:"octave"` // octave of the chord roots, 4 puts C at MIDI 60
	Velocity      uint8   `json:"velocity" yaml:"velocity" mapstructure:"velocity"`
	BeatsPerChord int     `json:"beats_per_chord" yaml:"beats_per_chord" mapstructure:"beats_per_chord"`
	Channel       uint8   `json:"channel" yaml:"channel" mapstructure:"channel"`
}

// DefaultOptions returns one 4/4 bar per chord at 120 BPM around middle C
func DefaultOptions() Options {
	return Options{
		BPM:           120,
		Octave:        4,
		Velocity:      100,
		BeatsPerChord: 4,
		Channel:       0,
	}
}

// Validate checks that every option produces valid MIDI
func (o Options) Validate() error {
	if o.BPM <= 0 {
		return fmt.Errorf("bpm must be positive: %v", o.BPM)
	}
	if o.Octave < 0 || o.Octave > 8 {
		return fmt.Errorf("octave must be between 0 and 8: %d", o.Octave)
	}
	if o.Velocity == 0 || o.Velocity > 127 {
		return fmt.Errorf("velocity must be between 1 and 127: %d", o.Velocity)
	}
	if o.BeatsPerChord < 1 {
		return fmt.Errorf("beats per chord must be at least 1: %d", o.BeatsPerChord)
	}
	if o.Channel > 15 {
		return fmt.Errorf("channel must be between 0 and 15: %d", o.Channel)
	}
	return nil
}

// Notes returns the MIDI keys of chord's triad with its root in octave
func Notes(chord tonal.RenderedChord, octave int) []uint8 {
	base := (octave+1)*12 + int(chord.Root.Normalize())
	intervals := QualityOf(chord.Degree).Intervals()

	keys := make([]uint8, len(intervals))
	for i, iv := range intervals {
		keys[i] = uint8(base + iv) //nolint:gosec // octave is validated to keep keys below 128
	}
	return keys
}

// Build assembles the SMF: a tempo track and one note track holding the chords
func Build(name string, chords []tonal.RenderedChord, opts Options) (*smf.SMF, error) {
	if len(chords) == 0 {
		return nil, ErrEmptyProgression
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(opts.BPM))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return nil, fmt.Errorf("error adding tempo track: %w", err)
	}

	length := uint32(opts.BeatsPerChord * TicksPerQuarter) //nolint:gosec // validated positive

	var track smf.Track
	if name != "" {
		track.Add(0, smf.MetaTrackSequenceName(name))
	}
	for _, chord := range chords {
		keys := Notes(chord, opts.Octave)
		for _, key := range keys {
			track.Add(0, midi.NoteOn(opts.Channel, key, opts.Velocity))
		}
		// all notes of the chord release together after its length
		for i, key := range keys {
			delta := uint32(0)
			if i == 0 {
				delta = length
			}
			track.Add(delta, midi.NoteOff(opts.Channel, key))
		}
	}
	track.Close(0)
	if err := sm.Add(track); err != nil {
		return nil, fmt.Errorf("error adding chord track: %w", err)
	}

	return sm, nil
}

// Write encodes chords as an SMF to w
func Write(w io.Writer, name string, chords []tonal.RenderedChord, opts Options) error {
	sm, err := Build(name, chords, opts)
	if err != nil {
		return err
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI: %w", err)
	}
	return nil
}

// WriteFile encodes chords as an SMF at path
func WriteFile(path, name string, chords []tonal.RenderedChord, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, name, chords, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
