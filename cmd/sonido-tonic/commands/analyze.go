package commands

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonic/analysis"
	"github.com/RyanBlaney/sonido-tonic/config"
	"github.com/RyanBlaney/sonido-tonic/logging"
	"github.com/RyanBlaney/sonido-tonic/midiexport"
	"github.com/RyanBlaney/sonido-tonic/render"
	"github.com/RyanBlaney/sonido-tonic/transcode"
)

// AnalyzeCommand holds the flags for the analyze command
type AnalyzeCommand struct {
	global *globalFlags

	threshold   float64
	top         int
	profile     string
	format      string
	output      string
	progression string
	midiPath    string
	plotPath    string
	bpm         float64
	progress    bool
}

func newAnalyzeCommand(g *globalFlags) *cobra.Command {
	c := &AnalyzeCommand{global: g}

	cmd := &cobra.Command{
		Use:   "analyze <audio-file>",
		Short: "Estimate the key of an audio file",
		Long: `Decode an audio file, accumulate a pitch-class profile from its chroma
frames and correlate it against the 24 major and minor key profiles.

WAV files are decoded in-process; other formats need ffmpeg and ffprobe.

Examples:
  sonido-tonic analyze song.mp3
  sonido-tonic analyze song.wav --format json --top 5
  sonido-tonic analyze song.flac --progression I-V-vi-IV --midi prog.mid --plot profile.png`,
		Args: cobra.ExactArgs(1),
		RunE: c.Run,
	}

	flags := cmd.Flags()
	flags.Float64Var(&c.threshold, "threshold", chroma.DefaultEnergyThreshold, "minimum chroma energy for a frame to count")
	flags.IntVar(&c.top, "top", analysis.DefaultTopN, "number of alternative keys to report")
	flags.StringVar(&c.profile, "profile", tonal.KrumhanslSchmuckler.Name, "key profile: krumhansl or temperley")
	flags.StringVarP(&c.format, "format", "f", "text", "output format: text, json or yaml")
	flags.StringVarP(&c.output, "output", "o", "", "write the report to a file instead of stdout")
	flags.StringVarP(&c.progression, "progression", "p", "", "progression to render in the key, e.g. I-V-vi-IV")
	flags.StringVar(&c.midiPath, "midi", "", "write the progression as a MIDI file")
	flags.StringVar(&c.plotPath, "plot", "", "write a PNG chart of the pitch-class profile")
	flags.Float64Var(&c.bpm, "bpm", 0, "tempo of the MIDI file (default from config)")
	flags.BoolVar(&c.progress, "progress", false, "show live progress on stderr")

	return cmd
}

// Run executes the analyze command
func (c *AnalyzeCommand) Run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := c.global.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.Analysis.EnergyThreshold = c.threshold
	}
	if flags.Changed("top") {
		cfg.Analysis.TopN = c.top
	}
	if flags.Changed("profile") {
		cfg.Analysis.Profile = c.profile
	}
	if c.bpm > 0 {
		cfg.MIDI.BPM = c.bpm
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	format, err := render.ParseFormat(c.format)
	if err != nil {
		return err
	}

	var progression tonal.Progression
	if c.progression != "" {
		progression, err = tonal.ParseProgression(c.progression)
		if err != nil {
			return err
		}
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger.Info("Decoding audio", logging.Fields{
		"file": path,
		"size": humanize.Bytes(uint64(info.Size())), //nolint:gosec // file sizes are non-negative
	})

	decoder := transcode.NewDecoder(cfg.Decoder).WithLogger(logger)
	audio, err := decoder.DecodeFile(ctx, path)
	if err != nil {
		return err
	}

	analyzer, err := analysis.NewAnalyzer(cfg.Analysis, cfg.Extractor)
	if err != nil {
		return err
	}
	analyzer.WithLogger(logger)

	var progress analysis.ProgressFunc
	if c.progress {
		progress = progressPrinter(cmd.ErrOrStderr(), cfg.Extractor.TuningFreq)
	}

	result, err := analyzer.Analyze(ctx, audio.PCM, audio.SampleRate, progress)
	if c.progress {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}
	result.Source.Path = path

	if err := c.writeReport(cmd, result, format, progression, cfg.Logging.Color); err != nil {
		return err
	}

	if c.midiPath != "" {
		if err := writeProgressionMIDI(c.midiPath, result.KeyInfo(), progression, cfg.MIDI); err != nil {
			return err
		}
		logger.Info("Wrote MIDI file", logging.Fields{"path": c.midiPath})
	}

	if c.plotPath != "" {
		if err := render.PlotProfileFile(c.plotPath, result); err != nil {
			return err
		}
		logger.Info("Wrote profile chart", logging.Fields{"path": c.plotPath})
	}

	return nil
}

func (c *AnalyzeCommand) writeReport(cmd *cobra.Command, result *analysis.Result, format render.Format, progression tonal.Progression, useColor bool) error {
	out := cmd.OutOrStdout()
	if c.output != "" {
		f, err := os.Create(c.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
		useColor = false
	}

	return render.Write(out, result, format, render.TextOptions{
		Color:       useColor,
		Progression: progression,
	})
}

// writeProgressionMIDI writes progression, or the first library progression of
// the key when none is given
func writeProgressionMIDI(path string, info *analysis.KeyInfo, progression tonal.Progression, opts midiexport.Options) error {
	if len(progression) == 0 {
		if len(info.Progressions) == 0 {
			return midiexport.ErrEmptyProgression
		}
		progression = info.Progressions[0].Progression
	}

	chords, err := tonal.Render(progression, info.Chords)
	if err != nil {
		return err
	}
	return midiexport.WriteFile(path, info.KeyName+" "+progression.String(), chords, opts)
}

// progressPrinter redraws a single status line with the frame's dominant pitch
func progressPrinter(w io.Writer, tuning float64) analysis.ProgressFunc {
	return func(p analysis.Progress) {
		note := p.DominantNote.String()
		if p.DominantFrequency > 0 {
			midi := int(math.Round(chroma.FrequencyToMIDI(p.DominantFrequency, tuning)))
			note = fmt.Sprintf("%s%d", chroma.PitchClass(midi).Normalize(), midi/12-1)
		}
		mark := " "
		if p.Accepted {
			mark = "*"
		}
		fmt.Fprintf(w, "\r%5.1f%%  %7.2fs  %-4s %8.1f Hz %s", p.Percent, p.Time, note, p.DominantFrequency, mark)
	}
}
