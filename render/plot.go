package render

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/analysis"
)

const (
	plotWidth  = 640
	plotHeight = 400
)

var (
	barColor      = color.RGBA{R: 70, G: 110, B: 180, A: 255}
	observedColor = color.RGBA{R: 220, G: 120, B: 40, A: 255}
)

// PlotProfile draws the accumulated pitch-class profile of res as a PNG bar
// chart. Observed notes are drawn in a second colour.
func PlotProfile(w io.Writer, res *analysis.Result) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pitch-class profile: %s (r = %.3f)", res.KeyName, res.Correlation)
	p.Y.Label.Text = "Relative weight"
	p.Y.Min = 0

	observed := chroma.NewObservedNoteSet(res.ObservedNotes...)
	profile := res.Profile.Normalized()

	var plain, marked plotter.Values
	for pc := range chroma.NumPitchClasses {
		if observed.Contains(chroma.PitchClass(pc)) {
			plain = append(plain, 0)
			marked = append(marked, profile[pc])
		} else {
			plain = append(plain, profile[pc])
			marked = append(marked, 0)
		}
	}

	width := vg.Points(24)

	bars, err := plotter.NewBarChart(plain, width)
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0

	observedBars, err := plotter.NewBarChart(marked, width)
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	observedBars.Color = observedColor
	observedBars.LineStyle.Width = 0

	p.Add(bars, observedBars)
	p.Legend.Add("profile", bars)
	p.Legend.Add("observed", observedBars)
	p.Legend.Top = true
	p.NominalX(chroma.Names()...)

	// 72 DPI makes one point one pixel, so the PNG is plotWidth x plotHeight pixels
	img := vgimg.NewWith(vgimg.UseWH(plotWidth, plotHeight), vgimg.UseDPI(72))
	dc := draw.New(img)
	p.Draw(dc)

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// PlotProfileFile writes PlotProfile's output to path
func PlotProfileFile(path string, res *analysis.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := PlotProfile(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
