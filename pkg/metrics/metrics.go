// Package metrics exposes Prometheus collectors for the resolve/render
// pipeline, used by the watch-and-serve mode.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector behind one prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	LoadsTotal        *prometheus.CounterVec
	LoadDuration      *prometheus.HistogramVec
	AcquisitionsTotal prometheus.Gauge
	PairsTotal        prometheus.Gauge
	DroppedPairsTotal prometheus.Gauge
	CoherenceDegraded *prometheus.CounterVec
	RendersTotal      *prometheus.CounterVec
}

// NewRegistry creates a registry with all collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.LoadsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarnet_loads_total",
			Help: "Total number of network loads",
		},
		[]string{"kind", "status"},
	)

	r.LoadDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sarnet_load_duration_seconds",
			Help:    "Network load duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"kind"},
	)

	r.AcquisitionsTotal = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "sarnet_acquisitions_total",
			Help: "Number of acquisitions in the last resolved network",
		},
	)

	r.PairsTotal = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "sarnet_pairs_total",
			Help: "Number of interferogram pairs in the last resolved network",
		},
	)

	r.DroppedPairsTotal = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "sarnet_dropped_pairs_total",
			Help: "Number of pairs marked as dropped in the last resolved network",
		},
	)

	r.CoherenceDegraded = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarnet_coherence_degraded_total",
			Help: "Loads that ended without usable coherence",
		},
		[]string{"reason"},
	)

	r.RendersTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sarnet_renders_total",
			Help: "Figures rendered",
		},
		[]string{"figure"},
	)

	return r
}

// Prometheus returns the underlying registry for HTTP exposition.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// RecordLoad records one load attempt with its duration.
func (r *Registry) RecordLoad(kind, status string, duration time.Duration) {
	r.LoadsTotal.WithLabelValues(kind, status).Inc()
	r.LoadDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordModel updates the gauges describing the last resolved network.
func (r *Registry) RecordModel(acquisitions, pairs, dropped int, coherencePresent bool, degradeReason string) {
	r.AcquisitionsTotal.Set(float64(acquisitions))
	r.PairsTotal.Set(float64(pairs))
	r.DroppedPairsTotal.Set(float64(dropped))
	if !coherencePresent && degradeReason != "" {
		r.CoherenceDegraded.WithLabelValues(degradeReason).Inc()
	}
}

// RecordRender counts one rendered figure.
func (r *Registry) RecordRender(figure string) {
	r.RendersTotal.WithLabelValues(figure).Inc()
}
