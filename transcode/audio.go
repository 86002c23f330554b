package transcode

import (
	"time"
)

// AudioData represents decoded mono audio
type AudioData struct {
	PCM        []float64     `json:"-"` // Raw PCM data, mono, nominally [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channels of the source before downmixing
	Duration   time.Duration `json:"duration"`
	Codec      string        `json:"codec,omitempty"`
	Source     string        `json:"source,omitempty"`
}

// Seconds returns the clip duration in seconds
func (a *AudioData) Seconds() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.PCM)) / float64(a.SampleRate)
}

// sampleDuration converts a sample count to a time.Duration
func sampleDuration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
