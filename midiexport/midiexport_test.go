package midiexport_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonic/midiexport"
)

func TestQualityOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, midiexport.MajorTriad, midiexport.QualityOf("IV"))
	assert.Equal(t, midiexport.MinorTriad, midiexport.QualityOf("vi"))
	assert.Equal(t, midiexport.DiminishedTriad, midiexport.QualityOf("vii°"))
	assert.Equal(t, midiexport.DiminishedTriad, midiexport.QualityOf("ii°"))
	// harmonic-minor dominant in the minor library
	assert.Equal(t, midiexport.MajorTriad, midiexport.QualityOf("V"))
	assert.Equal(t, "diminished", midiexport.DiminishedTriad.String())
}

func TestNotes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []uint8{60, 64, 67}, midiexport.Notes(tonal.RenderedChord{Degree: "I", Root: chroma.C}, 4))
	assert.Equal(t, []uint8{69, 72, 76}, midiexport.Notes(tonal.RenderedChord{Degree: "vi", Root: chroma.A}, 4))
	assert.Equal(t, []uint8{59, 62, 65}, midiexport.Notes(tonal.RenderedChord{Degree: "vii°", Root: chroma.B}, 3))
}

func TestWrite_RoundTrip(t *testing.T) {
	t.Parallel()

	chords := []tonal.RenderedChord{
		{Degree: "I", Root: chroma.C},
		{Degree: "V", Root: chroma.G},
		{Degree: "vi", Root: chroma.A},
		{Degree: "IV", Root: chroma.F},
	}

	opts := midiexport.DefaultOptions()
	opts.BPM = 90

	var buf bytes.Buffer
	require.NoError(t, midiexport.Write(&buf, "I-V-vi-IV", chords, opts))

	sm, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, sm.Tracks, 2)

	tempos := sm.TempoChanges()
	require.NotEmpty(t, tempos)
	assert.InDelta(t, 90.0, tempos[0].BPM, 0.01)

	var starts []uint8
	var absolute, lastStart uint32
	for _, ev := range sm.Tracks[1] {
		absolute += ev.Delta
		var ch, key, vel uint8
		if midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
			starts = append(starts, key)
			lastStart = absolute
			assert.Equal(t, uint8(100), vel)
		}
	}

	assert.Equal(t, []uint8{60, 64, 67, 67, 71, 74, 69, 72, 76, 65, 69, 72}, starts)
	assert.Equal(t, uint32(3*4*midiexport.TicksPerQuarter), lastStart)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prog.mid")
	err := midiexport.WriteFile(path, "", []tonal.RenderedChord{{Degree: "i", Root: chroma.A}}, midiexport.DefaultOptions())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MThd", string(data[:4]))
}

func TestWrite_Errors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := midiexport.Write(&buf, "", nil, midiexport.DefaultOptions())
	require.ErrorIs(t, err, midiexport.ErrEmptyProgression)

	chords := []tonal.RenderedChord{{Degree: "I", Root: chroma.C}}
	for _, mutate := range []func(*midiexport.Options){
		func(o *midiexport.Options) { o.BPM = 0 },
		func(o *midiexport.Options) { o.Octave = 9 },
		func(o *midiexport.Options) { o.Velocity = 0 },
		func(o *midiexport.Options) { o.BeatsPerChord = 0 },
		func(o *midiexport.Options) { o.Channel = 16 },
	} {
		opts := midiexport.DefaultOptions()
		mutate(&opts)
		require.Error(t, midiexport.Write(&buf, "", chords, opts))
	}
}
