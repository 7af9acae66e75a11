package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crackserver/internal/stats"
)

const shutdownTimeout = 5 * time.Second

const (
	HealthPath = "/api/health"
	StatsPath   = "/api/stats"
	MetricsPath = "/metrics"
)

type StatsSource interface {
	Snapshot() stats.Snapshot
}

// Server exposes health and metrics of the crack server over HTTP.
type Server struct {
	l        zerolog.Logger
	source   StatsSource
	gatherer prometheus.Gatherer
}

// NewServer serves source as JSON and, when gatherer is not nil, the
// Prometheus exposition of gatherer.
func NewServer(source StatsSource, gatherer prometheus.Gatherer) *Server {
	return &Server{
		source:   source,
		gatherer: gatherer,
		l: log.With().
			Str("domain", "api-server").
			Str("type", "http").
			Logger(),
	}
}

func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(s.l))
	router.HandleFunc(HealthPath, s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc(StatsPath, s.handleStats).Methods(http.MethodGet)
	if s.gatherer != nil {
		router.Handle(MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return router
}

// Start serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	errC := make(chan error, 1)
	go func() {
		errC <- srv.Serve(ln)
	}()
	s.l.Info().Str("address", ln.Addr().String()).Msg("api server is running")

	select {
	case err := <-errC:
		return errors.Wrap(err, "api server failed")
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "api server shutdown")
	}
	<-errC
	s.l.Debug().Msg("api server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		s.l.Warn().Err(err).Msg("failed to write health response")
	}
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Snapshot()); err != nil {
		s.l.Warn().Err(err).Msg("failed to encode stats")
	}
}

func loggingMiddleware(l zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("incoming request")
			next.ServeHTTP(w, r)
		})
	}
}
