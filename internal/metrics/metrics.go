// Package metrics exposes Prometheus instrumentation for analysis runs.
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

// Artifact outcome labels.
const (
	StatusAnalyzed = "analyzed"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
)

var (
	ArtifactsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deadapi_artifacts_total",
		Help: "Artifacts processed, by outcome.",
	}, []string{"status"})

	DecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deadapi_decode_errors_total",
		Help: "Class entries skipped because they could not be decoded.",
	})

	CandidatesSeeded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deadapi_candidates_seeded",
		Help: "Candidate methods seeded from the core artifact in the last run.",
	})

	CandidatesRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deadapi_candidates_remaining",
		Help: "Candidate methods not yet proven used.",
	})

	CandidatesRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deadapi_candidates_removed_total",
		Help: "Candidate methods removed, by evidence source.",
	}, []string{"source"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deadapi_phase_seconds",
		Help:    "Time spent in each analysis phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	ArtifactDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deadapi_artifact_seconds",
		Help:    "Time spent analyzing a single artifact.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	})
)

// ObservePhase records how long a phase took.
func ObservePhase(phase string, d time.Duration) {
	PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
