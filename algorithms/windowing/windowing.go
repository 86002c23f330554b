// Package windowing names the analysis windows available to the STFT.
package windowing

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mjibson/go-dsp/window"
)

// Type identifies a window function
type Type string

const (
	Hann         Type = "hann"
	Hamming      Type = "hamming"
	Blackman     Type = "blackman"
	Bartlett     Type = "bartlett"
	FlatTop      Type = "flattop"
	Rectangular  Type = "rectangular"
)

// Default is the window used when none is configured
const Default = Hann

var windows = map[Type]func(int) []float64{
	Hann:         window.Hann,
	Hamming:      window.Hamming,
	Blackman:     window.Blackman,
	Bartlett:     window.Bartlett,
	FlatTop:      window.FlatTop,
	Rectangular:  window.Rectangular,
}

// ByName returns the coefficient generator for name. "" means Default;
// "hanning" is accepted for Hann.
func ByName(name string) (func(int) []float64, error) {
	t := Type(strings.ToLower(strings.TrimSpace(name)))
	switch t {
	case "":
		t = Default
	case "hanning":
		t = Hann
	}

	fn, ok := windows[t]
	if !ok {
		return nil, fmt.Errorf("unknown window %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return fn, nil
}

// Names lists the supported window names, sorted
func Names() []string {
	names := make([]string, 0, len(windows))
	for t := range windows {
		names = append(names, string(t))
	}
	slices.Sort(names)
	return names
}
