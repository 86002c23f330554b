package commands

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonic/analysis"
	"github.com/RyanBlaney/sonido-tonic/logging"
	"github.com/RyanBlaney/sonido-tonic/render"
)

func newChordsCommand(g *globalFlags) *cobra.Command {
	var (
		format      string
		progression string
		midiPath    string
		bpm         float64
	)

	cmd := &cobra.Command{
		Use:   "chords <key>",
		Short: "Show the chords, progressions and related keys of a key",
		Long: `Show the seven diatonic chords of a key, the common progressions
rendered in it, and its relative, parallel, dominant and subdominant keys.

Examples:
  sonido-tonic chords "A minor"
  sonido-tonic chords F#m --progression i-VI-III-VII --midi prog.mid
  sonido-tonic chords Bb --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if bpm > 0 {
				cfg.MIDI.BPM = bpm
			}

			key, err := tonal.ParseKey(args[0])
			if err != nil {
				return err
			}

			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}

			var p tonal.Progression
			if progression != "" {
				if p, err = tonal.ParseProgression(progression); err != nil {
					return err
				}
			}

			info, err := analysis.Describe(key)
			if err != nil {
				return err
			}

			if f == render.FormatText {
				err = render.KeyText(cmd.OutOrStdout(), info, render.TextOptions{Color: cfg.Logging.Color, Progression: p})
			} else {
				err = render.Encode(cmd.OutOrStdout(), info, f)
			}
			if err != nil {
				return err
			}

			if midiPath != "" {
				if err := writeProgressionMIDI(midiPath, info, p, cfg.MIDI); err != nil {
					return err
				}
				logger.Info("Wrote MIDI file", logging.Fields{"path": midiPath})
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	cmd.Flags().StringVarP(&progression, "progression", "p", "", "progression to render, e.g. I-V-vi-IV")
	cmd.Flags().StringVar(&midiPath, "midi", "", "write the progression as a MIDI file")
	cmd.Flags().Float64Var(&bpm, "bpm", 0, "tempo of the MIDI file (default from config)")

	return cmd
}
