// Package config loads sonido-tonic settings from YAML files and SONIDO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonic/analysis"
	"github.com/RyanBlaney/sonido-tonic/logging"
	"github.com/RyanBlaney/sonido-tonic/midiexport"
	"github.com/RyanBlaney/sonido-tonic/transcode"
)

// Sentinel validation errors.
var (
	ErrInvalidPort      = errors.New("invalid server port")
	ErrInvalidThreshold = errors.New("energy threshold must be positive")
	ErrInvalidTopN      = errors.New("top_n must be at least 1")
	ErrInvalidUpload    = errors.New("invalid max upload size")
	ErrInvalidSection   = errors.New("invalid configuration section")
)

// EnvPrefix is the prefix of environment overrides, e.g. SONIDO_ANALYSIS_TOP_N
const EnvPrefix = "SONIDO"

const (
	defaultPort      = 8080
	defaultHost      = "0.0.0.0"
	defaultMaxUpload = "32MB"
	maxPort          = 65535
)

// Config holds all configuration for the CLI and server.
type Config struct {
	Analysis  analysis.Options        `mapstructure:"analysis" yaml:"analysis"`
	Extractor chroma.ExtractorConfig  `mapstructure:"extractor" yaml:"extractor"`
	Decoder   transcode.DecoderConfig `mapstructure:"decoder" yaml:"decoder"`
	MIDI      midiexport.Options      `mapstructure:"midi" yaml:"midi"`
	Server    ServerConfig            `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig           `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	MaxUpload    string        `mapstructure:"max_upload" yaml:"max_upload"` // humanized size, e.g. "32MB"
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// MaxUploadBytes parses MaxUpload
func (s ServerConfig) MaxUploadBytes() (int64, error) {
	n, err := humanize.ParseBytes(s.MaxUpload)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidUpload, s.MaxUpload, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUpload, s.MaxUpload)
	}
	return int64(n), nil //nolint:gosec // sizes beyond int64 are not meaningful here
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Color bool   `mapstructure:"color" yaml:"color"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches ./sonido.yaml, ./config/sonido.yaml and
// /etc/sonido/sonido.yaml; a missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("sonido")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/sonido")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := Validate(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the built-in configuration without reading files or environment.
func Default() *Config {
	extractor := chroma.DefaultExtractorConfig()
	decoder := transcode.DefaultDecoderConfig()
	return &Config{
		Analysis:  analysis.DefaultOptions(),
		Extractor: extractor,
		Decoder:   decoder,
		MIDI:      midiexport.DefaultOptions(),
		Server: ServerConfig{
			Host:         defaultHost,
			Port:         defaultPort,
			MaxUpload:    defaultMaxUpload,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Color: true},
	}
}

// setDefaults registers every key with viper so environment overrides apply.
func setDefaults(viperCfg *viper.Viper) {
	d := Default()

	// Analysis defaults.
	viperCfg.SetDefault("analysis.energy_threshold", d.Analysis.EnergyThreshold)
	viperCfg.SetDefault("analysis.profile", d.Analysis.Profile)
	viperCfg.SetDefault("analysis.top_n", d.Analysis.TopN)

	// Extractor defaults.
	viperCfg.SetDefault("extractor.window_size", d.Extractor.WindowSize)
	viperCfg.SetDefault("extractor.hop_size", d.Extractor.HopSize)
	viperCfg.SetDefault("extractor.min_freq", d.Extractor.MinFreq)
	viperCfg.SetDefault("extractor.max_freq", d.Extractor.MaxFreq)
	viperCfg.SetDefault("extractor.tuning", d.Extractor.TuningFreq)
	viperCfg.SetDefault("extractor.window", d.Extractor.Window)

	// Decoder defaults.
	viperCfg.SetDefault("decoder.sample_rate", d.Decoder.SampleRate)
	viperCfg.SetDefault("decoder.ffmpeg_path", d.Decoder.FFmpegPath)
	viperCfg.SetDefault("decoder.ffprobe_path", d.Decoder.FFprobePath)
	viperCfg.SetDefault("decoder.timeout", d.Decoder.Timeout.String())
	viperCfg.SetDefault("decoder.max_duration", "0s")

	// MIDI defaults.
	viperCfg.SetDefault("midi.bpm", d.MIDI.BPM)
	viperCfg.SetDefault("midi.octave", d.MIDI.Octave)
	viperCfg.SetDefault("midi.velocity", d.MIDI.Velocity)
	viperCfg.SetDefault("midi.beats_per_chord", d.MIDI.BeatsPerChord)
	viperCfg.SetDefault("midi.channel", d.MIDI.Channel)

	// Server defaults.
	viperCfg.SetDefault("server.host", d.Server.Host)
	viperCfg.SetDefault("server.port", d.Server.Port)
	viperCfg.SetDefault("server.max_upload", d.Server.MaxUpload)
	viperCfg.SetDefault("server.read_timeout", d.Server.ReadTimeout.String())
	viperCfg.SetDefault("server.write_timeout", d.Server.WriteTimeout.String())

	// Logging defaults.
	viperCfg.SetDefault("logging.level", d.Logging.Level)
	viperCfg.SetDefault("logging.color", d.Logging.Color)
}

// Validate checks every section of the configuration.
func Validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, config.Server.Port)
	}

	if _, err := config.Server.MaxUploadBytes(); err != nil {
		return err
	}

	if config.Analysis.EnergyThreshold <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, config.Analysis.EnergyThreshold)
	}

	if config.Analysis.TopN < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidTopN, config.Analysis.TopN)
	}

	if _, err := tonal.ProfileByName(config.Analysis.Profile); err != nil {
		return fmt.Errorf("%w: analysis: %w", ErrInvalidSection, err)
	}

	if err := config.Extractor.Validate(); err != nil {
		return fmt.Errorf("%w: extractor: %w", ErrInvalidSection, err)
	}

	if err := config.Decoder.Validate(); err != nil {
		return fmt.Errorf("%w: decoder: %w", ErrInvalidSection, err)
	}

	if err := config.MIDI.Validate(); err != nil {
		return fmt.Errorf("%w: midi: %w", ErrInvalidSection, err)
	}

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging: %w", ErrInvalidSection, err)
	}

	return nil
}
