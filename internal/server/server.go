// Package server exposes the published metrics snapshot over HTTP.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"codeberg.org/mutker/apollo-exporter/internal/errors"
	"codeberg.org/mutker/apollo-exporter/internal/logger"
	"github.com/gorilla/mux"
)

const (
	contentTypeExposition = "text/plain; version=0.0.4; charset=utf-8"
	contentTypeText       = "text/plain; charset=utf-8"

	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second

	banner = "Apollo Air-1 Prometheus Exporter\n\nEndpoints:\n  /metrics - Prometheus metrics\n  /health  - Health check\n"
)

// SnapshotSource returns the latest rendered exposition text.
type SnapshotSource interface {
	Current() string
}

// Server implements the scrape endpoint
type Server struct {
	source SnapshotSource
	addr   string
	server *http.Server
	log    logger.Logger
}

// NewServer creates a server for addr that serves source.
func NewServer(addr string, source SnapshotSource) *Server {
	s := &Server{
		source: source,
		addr:   addr,
		log:    logger.Component("server"),
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return s
}

// Handler returns the router with all endpoints registered.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet, http.MethodHead)

	return r
}

// Start listens on the configured address and blocks until Stop is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.addr).Msg("Starting metrics server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.New().Wrap(ErrServeHTTP, err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return errors.New().Wrap(ErrShutdownFailed, err)
	}
	return nil
}

// handleMetrics serves the last published snapshot, possibly stale, and
// never fails.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeExposition)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, s.source.Current())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, banner)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}
