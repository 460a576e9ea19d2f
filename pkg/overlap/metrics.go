package overlap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "geoview"

// Metrics holds Prometheus instruments for overlap detection.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PlacementsTotal    prometheus.Counter
	SamplesTotal       prometheus.Counter
	OverlapsTotal      *prometheus.CounterVec // label: kind
	FailedRegionsTotal prometheus.Counter
	DetectSeconds      prometheus.Histogram
}

// NewMetrics creates the instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PlacementsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "overlap",
			Name:      "placements_checked_total",
			Help:      "Placements checked for overlaps",
		}),
		SamplesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "overlap",
			Name:      "samples_total",
			Help:      "Surface samples drawn",
		}),
		OverlapsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "overlap",
			Name:      "overlaps_total",
			Help:      "Overlaps recorded by kind",
		}, []string{"kind"}),
		FailedRegionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "overlap",
			Name:      "failed_regions_total",
			Help:      "Overlap regions the kernel could not construct",
		}),
		DetectSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "overlap",
			Name:      "detect_duration_seconds",
			Help:      "Wall time of a full detection run",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

func (m *Metrics) observePlacement(samples int) {
	if m == nil {
		return
	}
	m.PlacementsTotal.Inc()
	m.SamplesTotal.Add(float64(samples))
}

func (m *Metrics) observeOverlap(k Kind) {
	if m == nil {
		return
	}
	m.OverlapsTotal.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) observeFailedRegion() {
	if m == nil {
		return
	}
	m.FailedRegionsTotal.Inc()
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.DetectSeconds.Observe(d.Seconds())
}
