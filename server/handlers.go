package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/RyanBlaney/sonido-tonic/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonic/algorithms/stats"
	"github.com/RyanBlaney/sonido-tonic/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonic/analysis"
	"github.com/RyanBlaney/sonido-tonic/logging"
	"github.com/RyanBlaney/sonido-tonic/midiexport"
	"github.com/RyanBlaney/sonido-tonic/render"
)

// multipart form field holding the uploaded audio
const audioField = "audio"

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"profiles": tonal.SupportedProfiles(),
		"default":  tonal.KrumhanslSchmuckler.Name,
	})
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, render.Schema())
}

// handleAnalyze accepts a multipart "audio" upload or a raw request body.
// Query parameters profile, threshold and top override the configured options.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	format, err := responseFormat(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	analyzer, err := s.analyzerFor(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	data, filename, err := uploadedAudio(r)
	if err != nil {
		s.writeError(w, uploadStatus(err), err)
		return
	}

	audio, err := s.decoder.DecodeReader(r.Context(), bytes.NewReader(data))
	if err != nil {
		s.writeError(w, uploadStatus(err), fmt.Errorf("decode audio: %w", err))
		return
	}

	result, err := analyzer.Analyze(r.Context(), audio.PCM, audio.SampleRate, nil)
	if err != nil {
		s.writeError(w, analysisStatus(err), err)
		return
	}
	if filename != "" {
		result.Source.Path = filename
	}

	s.logger.Info("Analyzed upload", logging.Fields{
		"key":      result.KeyName,
		"filename": filename,
		"seconds":  audio.Seconds(),
	})

	s.write(w, http.StatusOK, result, format)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	format, err := responseFormat(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	key, err := keyParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	info, err := analysis.Describe(key)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.write(w, http.StatusOK, info, format)
}

// handleKeyMIDI serves a progression in a key as a Standard MIDI File.
// The optional bpm query parameter overrides the configured tempo.
func (s *Server) handleKeyMIDI(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	raw, err := url.PathUnescape(chi.URLParam(r, "progression"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	progression, err := tonal.ParseProgression(strings.TrimSuffix(raw, ".mid"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	table, err := tonal.ChordsFor(key.Tonic, key.Mode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	chords, err := tonal.Render(progression, table)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	opts := s.config.MIDI
	if v := r.URL.Query().Get("bpm"); v != "" {
		bpm, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("bpm: %w", err))
			return
		}
		opts.BPM = bpm
	}

	sm, err := midiexport.Build(key.Name()+" "+progression.String(), chords, opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.mid", strings.ReplaceAll(key.Name(), " ", "-"), progression.String())
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := sm.WriteTo(w); err != nil {
		s.logger.Error(err, "Failed to write MIDI response")
	}
}

func (s *Server) analyzerFor(q url.Values) (*analysis.Analyzer, error) {
	opts := s.config.Analysis
	overridden := false

	if v := q.Get("profile"); v != "" {
		opts.Profile = v
		overridden = true
	}
	if v := q.Get("threshold"); v != "" {
		th, err := strconv.ParseFloat(v, 64)
		if err != nil || th <= 0 {
			return nil, fmt.Errorf("invalid threshold %q", v)
		}
		opts.EnergyThreshold = th
		overridden = true
	}
	if v := q.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid top %q", v)
		}
		opts.TopN = n
		overridden = true
	}

	if !overridden {
		return s.analyzer, nil
	}
	a, err := analysis.NewAnalyzer(opts, s.config.Extractor)
	if err != nil {
		return nil, err
	}
	return a.WithLogger(s.logger), nil
}

// uploadedAudio reads the whole upload; the body is already capped by MaxBytesReader
func uploadedAudio(r *http.Request) ([]byte, string, error) {
	var (
		src      io.Reader = r.Body
		filename string
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile(audioField)
		if err != nil {
			return nil, "", fmt.Errorf("form field %q: %w", audioField, err)
		}
		defer file.Close()
		src = file
		filename = header.Filename
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty upload")
	}
	return data, filename, nil
}

func keyParam(r *http.Request) (tonal.Key, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		return tonal.Key{}, err
	}
	return tonal.ParseKey(raw)
}

func responseFormat(r *http.Request) (render.Format, error) {
	v := r.URL.Query().Get("format")
	if v == "" {
		return render.FormatJSON, nil
	}
	f, err := render.ParseFormat(v)
	if err != nil {
		return "", err
	}
	if f == render.FormatText {
		return "", fmt.Errorf("%w: %q", render.ErrUnknownFormat, v)
	}
	return f, nil
}

func uploadStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func analysisStatus(err error) int {
	switch {
	case errors.Is(err, chroma.ErrInsufficientData), errors.Is(err, stats.ErrDegenerateInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) write(w http.ResponseWriter, status int, v any, format render.Format) {
	if format == render.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(status)
		if err := render.YAML(w, v); err != nil {
			s.logger.Error(err, "Failed to encode response")
		}
		return
	}
	s.writeJSON(w, status, v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := render.JSON(w, v); err != nil {
		s.logger.Error(err, "Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(err, "Request failed")
	} else {
		s.logger.Debug("Request rejected", logging.Fields{"status": status, "error": err.Error()})
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
