// Package http is the read-only HTTP surface: scan, pulse, signals,
// correlations and scorecard documents plus health and metrics.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/polysentry/polysentry/internal/config"
	"github.com/polysentry/polysentry/internal/engine"
	"github.com/polysentry/polysentry/internal/scan"
)

// Server serves the surveillance API.
type Server struct {
	router *mux.Router
	server *http.Server
	orch   *scan.Orchestrator
	eng    *engine.Engine
	cfg    config.ServerConfig
}

// NewServer wires routes and middleware onto the engine.
func NewServer(eng *engine.Engine, cfg config.ServerConfig) *Server {
	s := &Server{
		router: mux.NewRouter(),
		orch:   scan.New(eng),
		eng:    eng,
		cfg:    cfg,
	}
	s.routes()
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(requestIDMiddleware)
	s.router.Use(loggingMiddleware)
	s.router.Use(timeoutMiddleware(s.cfg.RequestTimeout))

	s.router.HandleFunc("/scan", s.handleScan).Methods(http.MethodGet)
	s.router.HandleFunc("/pulse", s.handlePulse).Methods(http.MethodGet)
	s.router.HandleFunc("/signals", s.handleSignals).Methods(http.MethodGet)
	s.router.HandleFunc("/correlations", s.handleCorrelations).Methods(http.MethodGet)
	s.router.HandleFunc("/scorecard", s.handleScorecard).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// Start blocks until the context ends or the listener fails, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
