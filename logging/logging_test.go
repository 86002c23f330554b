package logging_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonic/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]logging.Level{
		"debug":   logging.DebugLevel,
		"INFO":    logging.InfoLevel,
		"":        logging.InfoLevel,
		"warning": logging.WarnLevel,
		" error ": logging.ErrorLevel,
		"fatal":   logging.FatalLevel,
	}
	for in, want := range cases {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := logging.ParseLevel("chatty")
	require.Error(t, err)
}

func TestWriterLogger_FiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWriterLogger(&buf, logging.WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown", logging.Fields{"frames": 3})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown")
	assert.Contains(t, out, "frames:3")
}

func TestWriterLogger_ErrorAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWriterLogger(&buf, logging.DebugLevel).
		WithFields(logging.Fields{"component": "test"})

	logger.Error(errors.New("boom"), "failed")

	out := buf.String()
	assert.Contains(t, out, "[ERROR] failed: boom")
	assert.Contains(t, out, "component:test")
}

func TestWithContext_PicksUpFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := logging.NewWriterLogger(&buf, logging.DebugLevel)

	ctx := logging.ContextWithFields(context.Background(), logging.Fields{"request_id": "abc"})
	base.WithContext(ctx).Debug("traced")

	assert.Contains(t, buf.String(), "request_id:abc")
}

func TestNoOpLogger(t *testing.T) {
	t.Parallel()

	var logger logging.Logger = &logging.NoOpLogger{}
	assert.Same(t, logger, logger.WithFields(logging.Fields{"a": 1}))
	assert.NotPanics(t, func() { logger.Info("nothing") })
}

// Mutates the global logger, so not parallel.
func TestGlobalLogger(t *testing.T) {
	previous := logging.GetGlobalLogger()
	t.Cleanup(func() { logging.SetGlobalLogger(previous) })

	var buf bytes.Buffer
	logging.SetGlobalLogger(logging.NewWriterLogger(&buf, logging.InfoLevel))

	logging.Debug("hidden")
	logging.WithFields(logging.Fields{"key": "A minor"}).Info("estimated")
	logging.SetLevel(logging.DebugLevel)
	logging.Debug("now shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "key:A minor")
	assert.Contains(t, out, "now shown")

	logging.SetGlobalLogger(nil)
	assert.IsType(t, &logging.NoOpLogger{}, logging.GetGlobalLogger())

	logging.SetGlobalLogger(logging.NewDefaultLoggerNoColor())
	assert.NotPanics(t, func() {
		logging.EnableColors()
		logging.DisableColors()
	})
}
