// Package server exposes key estimation and chord lookup over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/RyanBlaney/sonido-tonic/analysis"
	"github.com/RyanBlaney/sonido-tonic/config"
	"github.com/RyanBlaney/sonido-tonic/logging"
	"github.com/RyanBlaney/sonido-tonic/transcode"
)

const shutdownTimeout = 15 * time.Second

// Server is the HTTP API
type Server struct {
	config    *config.Config
	router    *chi.Mux
	decoder   *transcode.Decoder
	analyzer  *analysis.Analyzer
	maxUpload int64
	logger    logging.Logger
}

// New builds the router and the shared decoder and analyzer
func New(cfg *config.Config, logger logging.Logger) (*Server, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}

	maxUpload, err := cfg.Server.MaxUploadBytes()
	if err != nil {
		return nil, err
	}

	analyzer, err := analysis.NewAnalyzer(cfg.Analysis, cfg.Extractor)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		decoder:   transcode.NewDecoder(cfg.Decoder).WithLogger(logger),
		analyzer:  analyzer.WithLogger(logger),
		maxUpload: maxUpload,
		logger:    logger.WithFields(logging.Fields{"component": "http_server"}),
	}

	s.setupRoutes()
	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/profiles", s.handleProfiles)
		r.Get("/schema", s.handleSchema)
		r.Get("/chords/{key}", s.handleKey)
		r.Get("/chords/{key}/midi/{progression}", s.handleKeyMIDI)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("Request handled", logging.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.config.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.config.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", logging.Fields{"addr": srv.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
