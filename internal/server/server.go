// Package server provides the HTTP API for fit scoring and persona matching.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spigell/fitscore/internal/metrics"
	"github.com/spigell/fitscore/internal/scoring"
	"go.uber.org/zap"
)

const (
	DefaultAddr     = ":8080"
	shutdownTimeout = 15 * time.Second
	maxBodyBytes    = 1 << 20
)

// FitCalculator scores a contact against a product.
type FitCalculator interface {
	CalculateFitScore(ctx context.Context, contactID, productID, personaID string) *scoring.FitResult
}

// PersonaFinder resolves the best persona for a contact.
type PersonaFinder interface {
	FindMatchingPersona(ctx context.Context, contactID, tenantID string, opts scoring.MatchOptions) *scoring.PersonaMatch
}

type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	scorer     FitCalculator
	matcher    PersonaFinder
	metrics    *metrics.Metrics
	logger     *zap.Logger
	validate   *validator.Validate
	httpServer *http.Server
}

func New(cfg Config, scorer FitCalculator, matcher PersonaFinder, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	// provider calls dominate request time
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}

	s := &Server{
		scorer:   scorer,
		matcher:  matcher,
		metrics:  m,
		logger:   logger,
		validate: newValidator(),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed API wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/fit-score", s.handleFitScore)
	mux.HandleFunc("POST /api/persona-match", s.handlePersonaMatch)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.withRequestID(s.withLogging(s.withRecovery(mux)))
}

// Run serves until ctx is cancelled and then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding json response failed", zap.Error(err))
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.jsonResponse(w, status, map[string]string{
		"error":      message,
		"request_id": RequestID(r.Context()),
	})
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.errorResponse(w, r, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}
