package analysis

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/logging"
)

// Analyzer runs chroma extraction over decoded PCM and feeds a fresh Session
// per clip. It holds no per-clip state and may be shared.
type Analyzer struct {
	options   Options
	extractor chroma.ExtractorConfig
	logger    logging.Logger
}

// NewAnalyzer validates both configs up front
func NewAnalyzer(opts Options, extractor chroma.ExtractorConfig) (*Analyzer, error) {
	if err := extractor.Validate(); err != nil {
		return nil, fmt.Errorf("extractor config: %w", err)
	}
	if _, err := NewSession(opts); err != nil {
		return nil, fmt.Errorf("analysis options: %w", err)
	}
	return &Analyzer{
		options:   opts,
		extractor: extractor,
		logger:    &logging.NoOpLogger{},
	}, nil
}

// WithLogger sets the logger passed to extractors and sessions
func (a *Analyzer) WithLogger(logger logging.Logger) *Analyzer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Analyze estimates the key of mono pcm sampled at sampleRate. progress may be nil.
func (a *Analyzer) Analyze(ctx context.Context, pcm []float64, sampleRate int, progress ProgressFunc) (*Result, error) {
	extractor, err := chroma.NewExtractor(sampleRate, a.extractor)
	if err != nil {
		return nil, err
	}
	extractor.WithLogger(a.logger)

	frames, err := extractor.Extract(ctx, pcm)
	if err != nil {
		return nil, fmt.Errorf("extract chroma: %w", err)
	}

	session, err := NewSession(a.options)
	if err != nil {
		return nil, err
	}
	duration := float64(len(pcm)) / float64(sampleRate)
	session.WithLogger(a.logger).WithProgress(duration, progress)

	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		session.Accept(frame)
	}

	result, err := session.Finalize()
	if err != nil {
		return nil, err
	}

	result.Source = &SourceInfo{
		SampleRate: sampleRate,
		Duration:   duration,
		Frames:     len(frames),
	}
	return result, nil
}
