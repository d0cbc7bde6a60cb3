// Package metrics exposes prometheus collectors for the evidence recorder
// and the HTTP server that serves them in watch mode.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Session lifecycle metrics
	SessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "testigo_sessions_started_total",
			Help: "Total number of evidence sessions begun",
		},
	)

	SessionsFinalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "testigo_sessions_finalized_total",
			Help: "Total number of evidence sessions finalized",
		},
	)

	SessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "testigo_session_duration_seconds",
			Help:    "Total running time of finalized sessions, pauses excluded",
			Buckets: []float64{60, 300, 600, 1800, 3600, 7200, 14400},
		},
	)

	// Pause metrics
	PausesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "testigo_pauses_total",
			Help: "Total number of pause intervals opened",
		},
	)

	PauseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "testigo_pause_duration_seconds",
			Help:    "Duration of completed pause intervals",
			Buckets: []float64{10, 30, 60, 300, 900, 1800, 3600},
		},
	)

	// Evidence metrics
	EvidencesCaptured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "testigo_evidences_captured_total",
			Help: "Total number of evidence entries recorded",
		},
	)

	AssetsAttached = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "testigo_evidence_assets_attached_total",
			Help: "Total number of supplementary captures attached",
		},
	)

	// Watch-mode gauges refreshed from storage
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "testigo_active_sessions",
			Help: "Number of sessions begun but not finalized",
		},
	)

	ActiveSessionElapsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "testigo_active_session_elapsed_seconds",
			Help: "Elapsed running time of the newest open session",
		},
	)

	ActiveSessionEvidences = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "testigo_active_session_evidences",
			Help: "Evidence entries recorded for the newest open session",
		},
	)
)

// Register registers all collectors with the given registry.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		SessionsStarted,
		SessionsFinalized,
		SessionDuration,
		PausesTotal,
		PauseDuration,
		EvidencesCaptured,
		AssetsAttached,
		ActiveSessions,
		ActiveSessionElapsed,
		ActiveSessionEvidences,
	)
}

// Server serves prometheus metrics over HTTP
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, registry *prometheus.Registry, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
