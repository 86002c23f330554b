package transcode

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-tonic/logging"
)

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	SampleRate  int           `json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`    // output sample rate
	FFmpegPath  string        `json:"ffmpeg_path" yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`    // Path to ffmpeg binary
	FFprobePath string        `json:"ffprobe_path" yaml:"ffprobe_path" mapstructure:"ffprobe_path"` // Path to ffprobe binary
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`                // per ffmpeg/ffprobe invocation
	MaxDuration time.Duration `json:"max_duration" yaml:"max_duration" mapstructure:"max_duration"` // 0 means whole file
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		SampleRate:  44100,
		FFmpegPath:  "ffmpeg",  // Assume in PATH
		FFprobePath: "ffprobe", // Assume in PATH
		Timeout:     30 * time.Second,
	}
}

// Validate checks the configuration values
func (c DecoderConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive: %d", c.SampleRate)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %v", c.Timeout)
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("max duration must not be negative: %v", c.MaxDuration)
	}
	return nil
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// Decoder decodes audio to mono float64 PCM. WAV input is decoded in-process;
// everything else goes through ffmpeg.
type Decoder struct {
	config DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder
func NewDecoder(config DecoderConfig) *Decoder {
	return &Decoder{
		config: config,
		logger: logging.GetGlobalLogger(),
	}
}

// WithLogger sets the decoder's logger
func (d *Decoder) WithLogger(logger logging.Logger) *Decoder {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Config returns the decoder configuration
func (d *Decoder) Config() DecoderConfig {
	return d.config
}

// DecodeFile decodes an audio file and returns mono PCM
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	if strings.EqualFold(filepath.Ext(filename), ".wav") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		audio, err := d.decodeWAVFile(filename)
		if err == nil {
			logger.Debug("Decoded WAV in-process", logging.Fields{
				"sample_rate": audio.SampleRate,
				"samples":     len(audio.PCM),
			})
			return audio, nil
		}
		// compressed or exotic WAV flavours still decode through ffmpeg
		logger.Debug("In-process WAV decode failed, falling back to ffmpeg", logging.Fields{
			"error": err.Error(),
		})
	}

	metadata, err := d.Probe(ctx, filename)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	output, err := d.run(ctx, d.config.FFmpegPath, d.buildFFmpegArgs(filename), nil)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	audio, err := d.toAudioData(output, metadata.Channels, metadata.Codec)
	if err != nil {
		return nil, err
	}
	audio.Source = filename
	return audio, nil
}

// DecodeReader decodes audio from r, sniffing WAV headers for the in-process path
func (d *Decoder) DecodeReader(ctx context.Context, r io.Reader) (*AudioData, error) {
	br := bufio.NewReader(r)
	header, _ := br.Peek(12)

	if IsWAV(header) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		audio, err := DecodeWAV(br)
		if err != nil {
			return nil, err
		}
		return d.truncate(audio), nil
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	output, err := d.run(ctx, d.config.FFmpegPath, d.buildFFmpegArgs("pipe:0"), data)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return d.toAudioData(output, 0, "")
}

// Probe uses ffprobe to read the first audio stream's properties
func (d *Decoder) Probe(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		filename,
	}

	output, err := d.run(ctx, d.config.FFprobePath, args, nil)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// CheckAvailable verifies that ffmpeg and ffprobe can be executed
func (d *Decoder) CheckAvailable(ctx context.Context) error {
	for _, bin := range []string{d.config.FFmpegPath, d.config.FFprobePath} {
		if _, err := d.run(ctx, bin, []string{"-version"}, nil); err != nil {
			return fmt.Errorf("%s not available: %w", bin, err)
		}
	}
	return nil
}

func (d *Decoder) decodeWAVFile(filename string) (*AudioData, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	audio, err := DecodeWAV(f)
	if err != nil {
		return nil, err
	}
	audio.Source = filename
	return d.truncate(audio), nil
}

// truncate applies MaxDuration to in-process decodes; ffmpeg gets -t instead
func (d *Decoder) truncate(audio *AudioData) *AudioData {
	if d.config.MaxDuration <= 0 || audio.SampleRate <= 0 {
		return audio
	}
	limit := int(d.config.MaxDuration.Seconds() * float64(audio.SampleRate))
	if limit > 0 && len(audio.PCM) > limit {
		audio.PCM = audio.PCM[:limit]
		audio.Duration = sampleDuration(limit, audio.SampleRate)
	}
	return audio
}

// run executes bin with the configured timeout, feeding stdin when non-nil
func (d *Decoder) run(ctx context.Context, bin string, args []string, stdin []byte) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	d.logger.Debug("Running command", logging.Fields{
		"component": "audio_decoder",
		"command":   bin + " " + strings.Join(args, " "),
	})

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, err
	}
	return output, nil
}

// buildFFmpegArgs builds ffmpeg arguments producing mono f64le at the target rate
func (d *Decoder) buildFFmpegArgs(input string) []string {
	args := []string{
		"-v", "error",
		"-i", input,
		"-map", "0:a:0?",
		"-vn",
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.SampleRate),
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	return append(args, "pipe:1")
}

func (d *Decoder) toAudioData(output []byte, channels int, codec string) (*AudioData, error) {
	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	return &AudioData{
		PCM:        samples,
		SampleRate: d.config.SampleRate,
		Channels:   channels,
		Duration:   sampleDuration(len(samples), d.config.SampleRate),
		Codec:      codec,
	}, nil
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	// ffprobe reports numbers as strings; missing ones stay zero
	sampleRate, _ := strconv.Atoi(stream.SampleRate)
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// bytesToFloat64 converts raw little-endian float64 bytes, dropping a trailing partial sample
func bytesToFloat64(data []byte) []float64 {
	sampleCount := len(data) / 8
	if sampleCount == 0 {
		return nil
	}

	samples := make([]float64, sampleCount)
	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}
	return samples
}
