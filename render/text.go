package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonic/analysis"
)

const barWidth = 24

// TextOptions controls the human-readable report
type TextOptions struct {
	Color bool

	// Progression, when set, is rendered in the key and shown first
	Progression tonal.Progression
}

type palette struct {
	heading func(a ...any) string
	key     func(a ...any) string
	dim     func(a ...any) string
}

func newPalette(enabled bool) palette {
	heading := color.New(color.FgCyan, color.Bold)
	key := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.FgHiBlack)
	if !enabled {
		heading.DisableColor()
		key.DisableColor()
		dim.DisableColor()
	}
	return palette{
		heading: heading.SprintFunc(),
		key:     key.SprintFunc(),
		dim:     dim.SprintFunc(),
	}
}

// Write renders res in the given format
func Write(w io.Writer, res *analysis.Result, format Format, opts TextOptions) error {
	if format == FormatText {
		return Text(w, res, opts)
	}
	return Encode(w, res, format)
}

// Text writes the human-readable analysis report
func Text(w io.Writer, res *analysis.Result, opts TextOptions) error {
	pal := newPalette(opts.Color)

	var parts []string

	parts = append(parts, fmt.Sprintf("%s %s  %s",
		pal.heading("Key:"), pal.key(res.KeyName),
		pal.dim(fmt.Sprintf("(r = %.3f, clarity %.2f, ambiguity %.2f, profile %s)",
			res.Correlation, res.Clarity, res.Ambiguity, res.ProfileName))))

	parts = append(parts, fmt.Sprintf("%s %s accepted, %s rejected (energy threshold %.2f)",
		pal.heading("Frames:"),
		humanize.Comma(int64(res.Frames.Accepted)),
		humanize.Comma(int64(res.Frames.Rejected)),
		res.Frames.Threshold))

	if src := res.Source; src != nil {
		line := fmt.Sprintf("%s %.1fs at %d Hz, %s frames", pal.heading("Audio:"),
			src.Duration, src.SampleRate, humanize.Comma(int64(src.Frames)))
		if src.Path != "" {
			line += " " + pal.dim(src.Path)
		}
		parts = append(parts, line)
	}

	if len(opts.Progression) > 0 {
		rp, err := res.Progression(opts.Progression)
		if err != nil {
			return err
		}
		parts = append(parts, fmt.Sprintf("%s %s", pal.heading("Progression:"), chordsLine(rp.Chords)))
	}

	parts = append(parts, alternativesTable(res.Alternatives))
	parts = append(parts, profileTable(res.Profile, res.ObservedNotes))

	parts = append(parts, keyInfoParts(res.KeyInfo(), pal)...)

	_, err := io.WriteString(w, strings.Join(parts, "\n\n")+"\n")
	return err
}

// KeyText writes the chord table, progressions and related keys of info
func KeyText(w io.Writer, info *analysis.KeyInfo, opts TextOptions) error {
	pal := newPalette(opts.Color)

	parts := []string{fmt.Sprintf("%s %s", pal.heading("Key:"), pal.key(info.KeyName))}

	if len(opts.Progression) > 0 {
		chords, err := tonal.Render(opts.Progression, info.Chords)
		if err != nil {
			return err
		}
		parts = append(parts, fmt.Sprintf("%s %s", pal.heading("Progression:"), chordsLine(chords)))
	}

	parts = append(parts, keyInfoParts(info, pal)...)

	_, err := io.WriteString(w, strings.Join(parts, "\n\n")+"\n")
	return err
}

func keyInfoParts(info *analysis.KeyInfo, pal palette) []string {
	rel := info.Relations
	related := fmt.Sprintf("%s relative %s | parallel %s | dominant %s | subdominant %s",
		pal.heading("Related keys:"),
		rel.Relative.Name(), rel.Parallel.Name(), rel.Dominant.Name(), rel.Subdominant.Name())

	return []string{
		chordTable(info.Chords),
		progressionTable(info.Progressions),
		related,
	}
}

// newTable keeps header case as written; degree labels carry chord quality in their case
func newTable(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(title)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	return tw
}

func alternativesTable(candidates []tonal.KeyCandidate) string {
	tw := newTable("Top keys")
	tw.AppendHeader(table.Row{"#", "Key", "Correlation"})
	for i, c := range candidates {
		tw.AppendRow(table.Row{i + 1, c.Name(), fmt.Sprintf("%.3f", c.Correlation)})
	}
	return tw.Render()
}

func profileTable(profile chroma.Profile, observed []chroma.PitchClass) string {
	set := chroma.NewObservedNoteSet(observed...)
	normalized := profile.Normalized()

	tw := newTable("Pitch-class profile")
	tw.AppendHeader(table.Row{"Note", "Weight", "", "Observed"})
	for pc, weight := range normalized {
		mark := ""
		if set.Contains(chroma.PitchClass(pc)) {
			mark = "*"
		}
		tw.AppendRow(table.Row{
			chroma.PitchClass(pc).String(),
			fmt.Sprintf("%.2f", profile[pc]),
			bar(weight),
			mark,
		})
	}
	return tw.Render()
}

func chordTable(t tonal.ChordTable) string {
	tw := newTable("Diatonic chords of " + t.Key.Name())

	header := table.Row{}
	roots := table.Row{}
	for _, c := range t.Chords {
		header = append(header, string(c.Degree))
		roots = append(roots, c.Root.String())
	}
	tw.AppendHeader(header)
	tw.AppendRow(roots)
	return tw.Render()
}

func progressionTable(progressions []analysis.RenderedProgression) string {
	tw := newTable("Progressions")
	tw.AppendHeader(table.Row{"Progression", "Chords"})
	for _, p := range progressions {
		tw.AppendRow(table.Row{p.Name, chordsLine(p.Chords)})
	}
	return tw.Render()
}

func chordsLine(chords []tonal.RenderedChord) string {
	labels := make([]string, len(chords))
	for i, c := range chords {
		labels[i] = c.String()
	}
	return strings.Join(labels, " - ")
}

func bar(weight float64) string {
	n := int(weight*barWidth + 0.5)
	n = min(max(n, 0), barWidth)
	return strings.Repeat("█", n)
}
