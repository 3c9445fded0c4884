package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Olzhassss/flappy-bird/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadyFunc reports whether the process can serve traffic, e.g. by pinging its database
type ReadyFunc func(ctx context.Context) error

// Server handles health checks and metrics
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	ready      ReadyFunc
}

// New creates a new observability server. A nil ready func always reports ready.
func New(addr string, l *logger.Logger, ready ReadyFunc) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger: l,
		ready:  ready,
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the routes, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// Start runs the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting observability server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
