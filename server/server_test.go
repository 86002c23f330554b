package server_test

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-tonic/config"
	"github.com/RyanBlaney/sonido-tonic/logging"
	"github.com/RyanBlaney/sonido-tonic/server"
	"github.com/RyanBlaney/sonido-tonic/transcode"
)

func newServer(t *testing.T, mutate ...func(*config.Config)) http.Handler {
	t.Helper()

	cfg := config.Default()
	cfg.Decoder.FFmpegPath = "/nonexistent/ffmpeg"
	cfg.Decoder.FFprobePath = "/nonexistent/ffprobe"
	for _, m := range mutate {
		m(cfg)
	}

	s, err := server.New(cfg, &logging.NoOpLogger{})
	require.NoError(t, err)
	return s.Handler()
}

// triadWAV encodes one second of a C4-E4-G4 triad with a stronger root
func triadWAV(t *testing.T) []byte {
	t.Helper()

	const sampleRate = 44100
	pcm := make([]float64, sampleRate)
	for i := range pcm {
		ts := float64(i) / sampleRate
		pcm[i] = 0.3*math.Sin(2*math.Pi*261.63*ts) +
			0.2*math.Sin(2*math.Pi*329.63*ts) +
			0.2*math.Sin(2*math.Pi*392.00*ts)
	}

	path := filepath.Join(t.TempDir(), "triad.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, transcode.EncodeWAV(f, pcm, sampleRate))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestAnalyze_RawBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(triadWAV(t)))
	req.Header.Set("Content-Type", "audio/wav")
	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "C major", body["key_name"])
	assert.Len(t, body["alternatives"], 3)
}

func TestAnalyze_MultipartYAML(t *testing.T) {
	t.Parallel()

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("audio", "triad.wav")
	require.NoError(t, err)
	_, err = fw.Write(triadWAV(t))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze?format=yaml&top=5", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))

	var doc struct {
		KeyName      string `yaml:"key_name"`
		Alternatives []any  `yaml:"alternatives"`
		Source       struct {
			Path string `yaml:"path"`
		} `yaml:"source"`
	}
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "C major", doc.KeyName)
	assert.Len(t, doc.Alternatives, 5)
	assert.Equal(t, "triad.wav", doc.Source.Path)
}

func TestAnalyze_Errors(t *testing.T) {
	t.Parallel()

	silence := func(t *testing.T) []byte {
		t.Helper()
		path := filepath.Join(t.TempDir(), "silence.wav")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, transcode.EncodeWAV(f, make([]float64, 44100), 44100))
		require.NoError(t, f.Close())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return data
	}

	tests := map[string]struct {
		target string
		body   []byte
		status int
		mutate func(*config.Config)
	}{
		"silence":       {"/api/analyze", silence(t), http.StatusUnprocessableEntity, nil},
		"not audio":     {"/api/analyze", []byte("definitely not audio"), http.StatusBadRequest, nil},
		"bad profile":   {"/api/analyze?profile=nope", triadWAV(t), http.StatusBadRequest, nil},
		"bad threshold": {"/api/analyze?threshold=-1", triadWAV(t), http.StatusBadRequest, nil},
		"bad format":    {"/api/analyze?format=xml", triadWAV(t), http.StatusBadRequest, nil},
		"too large": {"/api/analyze", triadWAV(t), http.StatusRequestEntityTooLarge, func(c *config.Config) {
			c.Server.MaxUpload = "1KB"
		}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var mutate []func(*config.Config)
			if tt.mutate != nil {
				mutate = append(mutate, tt.mutate)
			}

			rec := httptest.NewRecorder()
			newServer(t, mutate...).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.target, bytes.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chords/F%23m", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "F# minor", body["key_name"])

	relations, ok := body["relations"].(map[string]any)
	require.True(t, ok)
	relative, ok := relations["relative"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "A", relative["tonic"])

	rec = httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chords/H", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestKeyMIDI(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chords/C/midi/I-V-vi-IV.mid?bpm=100", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "audio/midi", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Header().Get("Content-Disposition"), "C-major-I-V-vi-IV.mid"))

	sm, err := smf.ReadFrom(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	tempos := sm.TempoChanges()
	require.NotEmpty(t, tempos)
	assert.InDelta(t, 100.0, tempos[0].BPM, 0.01)

	rec = httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chords/C/midi/I-IX", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	newServer(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chords/Am/midi/I-IV-V", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfilesAndSchema(t *testing.T) {
	t.Parallel()

	h := newServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []any{"krumhansl", "temperley"}, decodeBody(t, rec)["profiles"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "object", decodeBody(t, rec)["type"])
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Server.Port = 0
	_, err := server.New(cfg, nil)
	require.ErrorIs(t, err, config.ErrInvalidPort)
}
