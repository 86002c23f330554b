package transcode

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// wavBlock is the number of frames pulled from the beep streamer per call
const wavBlock = 4096

// IsWAV reports whether header starts with a RIFF/WAVE signature
func IsWAV(header []byte) bool {
	return len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE"))
}

// DecodeWAV decodes a PCM WAV stream in-process and downmixes it to mono
func DecodeWAV(r io.Reader) (*AudioData, error) {
	streamer, format, err := wav.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("wav decode: %w", err)
	}
	defer streamer.Close()

	scale := signedScale(format.Precision)
	pcm := make([]float64, 0, max(streamer.Len(), 0))
	buf := make([][2]float64, wavBlock)
	for {
		n, ok := streamer.Stream(buf)
		for _, frame := range buf[:n] {
			if format.NumChannels >= 2 {
				pcm = append(pcm, scale*(frame[0]+frame[1])/2)
			} else {
				pcm = append(pcm, scale*frame[0])
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("wav stream: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	sampleRate := int(format.SampleRate)
	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   format.NumChannels,
		Duration:   sampleDuration(len(pcm), sampleRate),
		Codec:      "pcm",
	}, nil
}

// signedScale corrects beep's 16 and 24-bit WAV decoding, which divides by
// 2^bits-1 instead of 2^(bits-1)-1 and so returns samples at half amplitude.
// 8-bit WAV is unsigned and decodes at full scale.
func signedScale(precision int) float64 {
	if precision != 2 && precision != 3 {
		return 1
	}
	bits := float64(precision * 8)
	return (math.Exp2(bits) - 1) / (math.Exp2(bits-1) - 1)
}

// monoStreamer plays a mono buffer on both beep channels
type monoStreamer struct {
	pcm []float64
	pos int
}

func (s *monoStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.pcm) {
		return 0, false
	}
	for n < len(samples) && s.pos < len(s.pcm) {
		samples[n][0] = s.pcm[s.pos]
		samples[n][1] = s.pcm[s.pos]
		n++
		s.pos++
	}
	return n, true
}

func (s *monoStreamer) Err() error {
	return nil
}

// EncodeWAV writes mono pcm as a 16-bit WAV file
func EncodeWAV(w io.WriteSeeker, pcm []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 1,
		Precision:   2,
	}
	return wav.Encode(w, &monoStreamer{pcm: pcm}, format)
}
