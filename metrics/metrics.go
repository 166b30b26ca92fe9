// Package metrics exposes Prometheus counters for registry operations and a
// standalone metrics HTTP listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RegistrationsTotal counts on-chain register attempts by outcome.
	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_registrations_total",
		Help: "On-chain document registrations by outcome.",
	}, []string{"outcome"})

	// VerificationsTotal counts verify calls by result.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_verifications_total",
		Help: "Document verifications by result.",
	}, []string{"result"})

	// RequestTransitionsTotal counts request lifecycle transitions.
	RequestTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_request_transitions_total",
		Help: "Request lifecycle transitions by target status.",
	}, []string{"status"})

	// ChainLatency observes the duration of chain interactions.
	ChainLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "document_chain_operation_seconds",
		Help:    "Latency of on-chain operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// ObserveChain records the latency of a chain operation started at t.
func ObserveChain(operation string, t time.Time) {
	ChainLatency.WithLabelValues(operation).Observe(time.Since(t).Seconds())
}

// Server serves the Prometheus scrape endpoint on its own listener.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, log *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// RunInBackground starts serving and returns immediately.
func (s *Server) RunInBackground() {
	go func() {
		s.log.Info("Metrics server starting", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Metrics server failed", slog.String("err", err.Error()))
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
