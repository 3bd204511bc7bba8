// Package metrics exposes prometheus instrumentation for the track session
// core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors updated by the registry and read sessions.
type Metrics struct {
	TracksOpen         prometheus.Gauge
	OpensTotal         prometheus.Counter
	ClosesTotal        prometheus.Counter
	LoadFailuresTotal  prometheus.Counter
	ReadSessionsTotal  prometheus.Counter
	BytesStreamedTotal prometheus.Counter
}

// New registers the collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TracksOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trackmount_tracks_open",
			Help: "Number of tracks currently held open in the registry.",
		}),
		OpensTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackmount_opens_total",
			Help: "Total open calls, cache hits included.",
		}),
		ClosesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackmount_closes_total",
			Help: "Total successful close calls.",
		}),
		LoadFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackmount_load_failures_total",
			Help: "Total track acquisitions that failed.",
		}),
		ReadSessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackmount_read_sessions_total",
			Help: "Total chunked read sessions started.",
		}),
		BytesStreamedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackmount_bytes_streamed_total",
			Help: "Total payload bytes handed to consumers.",
		}),
	}
}
