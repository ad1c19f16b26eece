package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records access gate, role resolution, and upload activity.
type Metrics struct {
	decisions     *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	resolveTime   *prometheus.HistogramVec
	uploads       *prometheus.CounterVec
	configUpdates *prometheus.CounterVec
}

// New registers the collectors on reg. A nil registerer yields a no-op recorder.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Access gate decisions by render mode.",
	}, []string{"mode"})
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "role_resolutions_total",
		Help: "Role resolutions by outcome.",
	}, []string{"outcome"})
	resolveTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "role_resolution_duration_seconds",
		Help:    "Duration of role resolutions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "File uploads by folder and outcome.",
	}, []string{"folder", "outcome"})
	configUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_config_events_total",
		Help: "Maintenance configuration snapshots and fetch failures.",
	}, []string{"event"})
	reg.MustRegister(decisions, resolutions, resolveTime, uploads, configUpdates)
	return &Metrics{
		decisions:     decisions,
		resolutions:   resolutions,
		resolveTime:   resolveTime,
		uploads:       uploads,
		configUpdates: configUpdates,
	}
}

// IncDecision counts one access decision for the given render mode.
func (m *Metrics) IncDecision(mode string) {
	if m == nil || m.decisions == nil {
		return
	}
	m.decisions.WithLabelValues(normalizeLabel(mode)).Inc()
}

// ObserveResolution counts a role resolution and records how long it took.
func (m *Metrics) ObserveResolution(outcome string, duration time.Duration) {
	if m == nil || m.resolutions == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.resolutions.WithLabelValues(label).Inc()
	m.resolveTime.WithLabelValues(label).Observe(duration.Seconds())
}

func (m *Metrics) IncUpload(folder, outcome string) {
	if m == nil || m.uploads == nil {
		return
	}
	m.uploads.WithLabelValues(normalizeLabel(folder), normalizeLabel(outcome)).Inc()
}

// IncConfigEvent counts maintenance snapshot traffic ("snapshot", "error", "timeout").
func (m *Metrics) IncConfigEvent(event string) {
	if m == nil || m.configUpdates == nil {
		return
	}
	m.configUpdates.WithLabelValues(normalizeLabel(event)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
