/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TracksPlayed counts tracks successfully started, by media kind.
	TracksPlayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musict_tracks_played_total",
		Help: "Tracks started playing, by media kind.",
	}, []string{"kind"})

	// TrackFailures counts transport-reported playback failures.
	TrackFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musict_track_failures_total",
		Help: "Playback failures reported by the call transport.",
	})

	// ResolveCacheHits counts stream cache hits.
	ResolveCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musict_resolve_cache_hits_total",
		Help: "Stream resolution cache hits.",
	})

	// ResolveCacheMisses counts stream cache misses.
	ResolveCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "musict_resolve_cache_misses_total",
		Help: "Stream resolution cache misses (upstream resolver calls).",
	})

	// ActiveSessions tracks channel sessions currently held in memory.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "musict_active_sessions",
		Help: "Channel sessions currently tracked.",
	})

	// BroadcastMessages counts broadcast fan-out deliveries by result.
	BroadcastMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "musict_broadcast_messages_total",
		Help: "Broadcast deliveries, by result.",
	}, []string{"result"})
)

// Router builds the ops HTTP surface: liveness and metrics. Callers mount
// additional routes on the returned router.
func Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
